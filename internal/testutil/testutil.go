// Package testutil provides test utilities and mock implementations.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CreateTempDir creates a temporary directory for testing
func CreateTempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "txmon-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})

	return dir
}

// WriteFile writes content to name inside dir and returns the full path
func WriteFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	return path
}

// ReadFile returns the content of path, failing the test if it cannot be read
func ReadFile(t *testing.T, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}

	return string(data)
}

// SampleADIF is a small WSJT-X log with a header and two QSOs
const SampleADIF = `WSJT-X ADIF Export
<adif_ver:5>3.1.0
<programid:6>WSJT-X
<EOH>
<call:5>K1ABC <gridsquare:4>FN42 <mode:3>FT8 <rst_sent:3>-10 <qso_date:8>20240517 <time_on:6>140309 <band:3>20m <eor>
<call:6>DL1XYZ <gridsquare:4>JO62 <mode:3>FT8 <rst_sent:3>-05 <qso_date:8>20240517 <time_on:6>141530 <band:3>20m <eor>
`
