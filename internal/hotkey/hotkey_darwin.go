//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

CGEventRef hotkeyTapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon);

// Listen-only tap for key and modifier events. Takes uintptr_t so the
// Go side can pass a cgo.Handle without an unsafe.Pointer conversion.
static inline void runKeyTap(uintptr_t refcon) {
    CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) |
                       CGEventMaskBit(kCGEventKeyUp) |
                       CGEventMaskBit(kCGEventFlagsChanged);
    CFMachPortRef tap = CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly,
        mask,
        hotkeyTapCallback,
        (void*)refcon
    );

    if (!tap) {
        printf("Hotkey: CGEventTap create failed. Accessibility permission missing?\n");
        return;
    }

    CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
    CFRunLoopAddSource(CFRunLoopGetCurrent(), source, kCFRunLoopCommonModes);
    CGEventTapEnable(tap, true);
    printf("Hotkey: CGEventTap listening.\n");
    CFRunLoopRun();
}
*/
import "C"
import (
	"log"
	"runtime/cgo"
	"unsafe"
)

//export hotkeyTapCallback
func hotkeyTapCallback(proxy C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, refcon unsafe.Pointer) C.CGEventRef {
	h := cgo.Handle(uintptr(refcon))
	m := h.Value().(*Monitor)

	switch eventType {
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		code := uint16(C.CGEventGetIntegerValueField(event, C.kCGKeyboardEventKeycode))
		if name, ok := macKeyNames[code]; ok {
			m.keyEvent(name, eventType == C.kCGEventKeyDown)
		}

	case C.kCGEventFlagsChanged:
		// The event flags carry the whole modifier state, so resync all
		// four instead of decoding which physical key changed.
		flags := C.CGEventGetFlags(event)
		m.keyEvent("CMD", flags&C.kCGEventFlagMaskCommand != 0)
		m.keyEvent("SHIFT", flags&C.kCGEventFlagMaskShift != 0)
		m.keyEvent("ALT", flags&C.kCGEventFlagMaskAlternate != 0)
		m.keyEvent("CTRL", flags&C.kCGEventFlagMaskControl != 0)
	}

	return event
}

func (m *Monitor) startPlatform() error {
	handle := cgo.NewHandle(m)
	go func() {
		log.Println("Hotkey: starting macOS event tap.")
		C.runKeyTap(C.uintptr_t(handle))
	}()
	return nil
}

// macKeyNames maps macOS virtual keycodes to chord key names. Modifier
// keys never arrive as key events; the flags-changed path covers those.
var macKeyNames = map[uint16]string{
	49: "SPACE", 36: "ENTER", 53: "ESC",

	0: "A", 11: "B", 8: "C", 2: "D", 14: "E", 3: "F", 5: "G", 4: "H",
	34: "I", 38: "J", 40: "K", 37: "L", 46: "M", 45: "N", 31: "O",
	35: "P", 12: "Q", 15: "R", 1: "S", 17: "T", 32: "U", 9: "V",
	13: "W", 7: "X", 16: "Y", 6: "Z",

	29: "0", 18: "1", 19: "2", 20: "3", 21: "4", 23: "5", 22: "6",
	26: "7", 28: "8", 25: "9",

	122: "F1", 120: "F2", 99: "F3", 118: "F4", 96: "F5", 97: "F6",
	98: "F7", 100: "F8", 101: "F9", 109: "F10", 103: "F11", 111: "F12",
}
