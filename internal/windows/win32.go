//go:build windows

package windows

import (
	"slices"
	"sync"
	"syscall"
	"unsafe"
)

const wmClose = 0x0010

var (
	kernel32 = syscall.NewLazyDLL("kernel32.dll")
	user32   = syscall.NewLazyDLL("user32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procPostMessageW             = user32.NewProc("PostMessageW")
)

// EnumWindows calls back synchronously, so a single collector serialised by
// enumMu is enough
var (
	enumMu   sync.Mutex
	enumSeen []WindowInfo
	enumProc = syscall.NewCallback(func(hwnd, _ uintptr) uintptr {
		if callBool(procIsWindowVisible, hwnd) {
			enumSeen = append(enumSeen, windowInfo(hwnd))
		}

		return 1
	})
)

// EnumerateWindows lists visible top-level windows
func EnumerateWindows() []WindowInfo {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumSeen = enumSeen[:0]
	if ret, _, _ := procEnumWindows.Call(enumProc, 0); ret == 0 {
		return nil
	}

	return slices.Clone(enumSeen)
}

func windowInfo(hwnd uintptr) WindowInfo {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	return WindowInfo{
		Hwnd:  hwnd,
		Title: readUTF16(procGetWindowTextW, hwnd, 512),
		Class: readUTF16(procGetClassNameW, hwnd, 256),
		Pid:   pid,
	}
}

// readUTF16 calls a GetXxxW style proc that fills a caller buffer and
// returns the number of characters written
func readUTF16(proc *syscall.LazyProc, hwnd uintptr, size int) string {
	buf := make([]uint16, size)

	n, _, _ := proc.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 || int(n) > len(buf) {
		return ""
	}

	return syscall.UTF16ToString(buf[:n])
}

func callBool(proc *syscall.LazyProc, args ...uintptr) bool {
	ret, _, _ := proc.Call(args...)
	return ret != 0
}

// IsWindow reports whether hwnd still names a window
func IsWindow(hwnd uintptr) bool {
	return callBool(procIsWindow, hwnd)
}

// postClose queues WM_CLOSE without waiting for the window to handle it
func postClose(hwnd uintptr) error {
	if ret, _, err := procPostMessageW.Call(hwnd, wmClose, 0, 0); ret == 0 {
		return err
	}

	return nil
}
