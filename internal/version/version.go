// Package version provides build version information.
package version

import "runtime"

var (
	// version is the semantic version (injected at build time via -ldflags)
	version = "dev"
	// commit is the git commit hash (injected at build time via -ldflags)
	commit = "none"
	// date is the build date (injected at build time via -ldflags)
	date = "unknown"
)

// Info describes the running build
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information for the running binary
func Get() Info {
	return Info{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetVersion returns the bare version string
func GetVersion() string {
	return version
}

// String renders the build the way --version prints it
func (i Info) String() string {
	return i.Version + " (commit: " + i.Commit + ", built: " + i.Date + ", " + i.Platform + ")"
}
