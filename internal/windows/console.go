//go:build windows

package windows

import (
	"sync"
	"syscall"
)

var (
	procSetConsoleCtrlHandler = kernel32.NewProc("SetConsoleCtrlHandler")

	consoleMu       sync.Mutex
	consoleHandlers []func(ctrlType uint32)
	consoleOnce     sync.Once
	consoleErr      error
)

// OnConsoleClose registers fn to run when the console receives a control
// event (Ctrl+C, Ctrl+Break, window close, logoff, shutdown). The native
// handler is installed once; later calls only add fn to the list.
func OnConsoleClose(fn func(ctrlType uint32)) error {
	consoleMu.Lock()
	consoleHandlers = append(consoleHandlers, fn)
	consoleMu.Unlock()

	consoleOnce.Do(func() {
		ret, _, err := procSetConsoleCtrlHandler.Call(
			syscall.NewCallback(consoleCtrlHandlerCallback),
			1, // TRUE - add handler
		)
		if ret == 0 {
			consoleErr = err
		}
	})

	return consoleErr
}

// consoleCtrlHandlerCallback is the callback Windows invokes on its own thread
func consoleCtrlHandlerCallback(ctrlType uint32) uintptr {
	consoleMu.Lock()
	handlers := append([]func(uint32){}, consoleHandlers...)
	consoleMu.Unlock()

	if len(handlers) == 0 {
		return 0 // FALSE - let default handler process it
	}

	for _, fn := range handlers {
		fn(ctrlType)
	}

	return 1
}
