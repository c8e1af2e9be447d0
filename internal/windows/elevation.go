//go:build windows

package windows

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"unsafe"
)

// TOKEN_INFORMATION_CLASS value for TOKEN_ELEVATION
const tokenElevation = 20

const swShowNormal = 1

var (
	shell32           = syscall.NewLazyDLL("shell32.dll")
	procShellExecuteW = shell32.NewProc("ShellExecuteW")
)

// IsElevated reports whether the current process holds an elevated token.
// UI Automation cannot drive a window owned by a higher integrity level, so
// an elevated WSJT-X needs an elevated txmon.
func IsElevated() bool {
	self, err := syscall.GetCurrentProcess()
	if err != nil {
		return false
	}

	var token syscall.Token
	if err := syscall.OpenProcessToken(self, syscall.TOKEN_QUERY, &token); err != nil {
		return false
	}
	defer token.Close()

	var elevated, n uint32
	err = syscall.GetTokenInformation(token, tokenElevation,
		(*byte)(unsafe.Pointer(&elevated)), uint32(unsafe.Sizeof(elevated)), &n)

	return err == nil && elevated != 0
}

// RelaunchAsAdmin starts this executable again through the "runas" verb
// with the same arguments, minus --elevate
func RelaunchAsAdmin() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	if strings.Contains(exe, "go-build") {
		return errors.New("cannot relaunch when run via 'go run', please build the executable first with: go build -o txmon.exe")
	}

	return shellExecute("runas", exe, relaunchArgs(os.Args[1:]))
}

func relaunchArgs(args []string) string {
	out := make([]string, 0, len(args))

	for _, a := range args {
		switch {
		case a == "--elevate":
			continue
		case strings.ContainsAny(a, " \t"):
			out = append(out, `"`+a+`"`)
		default:
			out = append(out, a)
		}
	}

	return strings.Join(out, " ")
}

// utf16Ptr returns nil for "" so optional arguments reach the API as NULL
func utf16Ptr(s string) (*uint16, error) {
	if s == "" {
		return nil, nil
	}

	return syscall.UTF16PtrFromString(s)
}

func shellExecute(verb, file, args string) error {
	var ptrs [3]*uint16

	for i, s := range []string{verb, file, args} {
		p, err := utf16Ptr(s)
		if err != nil {
			return err
		}

		ptrs[i] = p
	}

	// Values above 32 mean success
	ret, _, _ := procShellExecuteW.Call(0,
		uintptr(unsafe.Pointer(ptrs[0])),
		uintptr(unsafe.Pointer(ptrs[1])),
		uintptr(unsafe.Pointer(ptrs[2])),
		0, swShowNormal)
	if ret <= 32 {
		return fmt.Errorf("shell execute failed with error code: %d", ret)
	}

	return nil
}
