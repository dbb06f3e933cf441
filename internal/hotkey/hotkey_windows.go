//go:build windows

package hotkey

import (
	"fmt"
	"log"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	getMessage          = user32.NewProc("GetMessageW")
	translateMessage    = user32.NewProc("TranslateMessage")
	dispatchMessage     = user32.NewProc("DispatchMessageW")
	getModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13
	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
)

type kbdHookInfo struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winMsg struct {
	Hwnd    syscall.Handle
	Message uint32
	Wparam  uintptr
	Lparam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

var (
	hookMonitor *Monitor
	hookHandle  uintptr
)

// startPlatform installs a low-level keyboard hook. The hook and its
// message pump must live on the same OS thread.
func (m *Monitor) startPlatform() error {
	hookMonitor = m

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		hMod, _, _ := getModuleHandle.Call(0)

		var err error
		hookHandle, _, err = setWindowsHookEx.Call(
			whKeyboardLL,
			syscall.NewCallback(keyboardProc),
			hMod,
			0,
		)
		if hookHandle == 0 {
			log.Printf("Hotkey: keyboard hook failed: %v", err)
			return
		}

		log.Println("Hotkey: Windows keyboard hook installed.")

		var msg winMsg
		for {
			ret, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
			translateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			dispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
		}

		unhookWindowsHookEx.Call(hookHandle)
	}()

	return nil
}

func keyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 {
		info := (*kbdHookInfo)(unsafe.Pointer(lParam))
		if name := vkName(info.VkCode); name != "" {
			pressed := wParam == wmKeyDown || wParam == wmSysKeyDown
			hookMonitor.keyEvent(name, pressed)
		}
	}
	ret, _, _ := callNextHookEx.Call(hookHandle, uintptr(nCode), wParam, lParam)
	return ret
}

// namedVks maps virtual-key codes to chord key names. Left and right
// variants of a modifier collapse to one name, and the Windows key is
// reported as CMD so chords spell the same on every platform.
var namedVks = map[uint32]string{
	0x11: "CTRL", 0xA2: "CTRL", 0xA3: "CTRL",
	0x12: "ALT", 0xA4: "ALT", 0xA5: "ALT",
	0x10: "SHIFT", 0xA0: "SHIFT", 0xA1: "SHIFT",
	0x5B: "CMD", 0x5C: "CMD",
	0x20: "SPACE",
	0x0D: "ENTER",
	0x1B: "ESC",
	0x08: "BACKSPACE",
	0x09: "TAB",
	0x14: "CAPSLOCK",
	0x21: "PAGEUP",
	0x22: "PAGEDOWN",
	0x23: "END",
	0x24: "HOME",
	0x25: "LEFT",
	0x26: "UP",
	0x27: "RIGHT",
	0x28: "DOWN",
	0x2C: "PRINTSCREEN",
	0x2D: "INSERT",
	0x2E: "DELETE",
	0x13: "PAUSE",
	0x91: "SCROLLLOCK",
}

func vkName(vk uint32) string {
	if name, ok := namedVks[vk]; ok {
		return name
	}
	switch {
	case vk >= 0x41 && vk <= 0x5A: // A-Z
		return string(rune(vk))
	case vk >= 0x30 && vk <= 0x39: // 0-9
		return string(rune(vk))
	case vk >= 0x70 && vk <= 0x7B:
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	return ""
}
