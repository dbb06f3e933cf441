// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	Title    string
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	items   []*MenuItem
	onReady func()
	onExit  func()
	readyCh chan struct{}
	quitCh  chan struct{}
}

// New creates a new system tray
func New(tooltip string) *Tray {
	t := &Tray{
		items:   make([]*MenuItem, 0),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}

	t.onReady = func() {
		systray.SetTitle("HID")
		systray.SetTooltip(tooltip)
		systray.SetIcon(keyboardIcon())
		close(t.readyCh)
	}

	t.onExit = func() {
		close(t.quitCh)
	}

	return t
}

// AddMenuItem adds a menu item to the tray. A nil callback makes the
// item display-only. The returned id addresses the item in the
// SetItem* methods.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	t.items = append(t.items, &MenuItem{
		Title:    title,
		Callback: callback,
	})
	return len(t.items) - 1
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil) // nil indicates separator
}

// SetItemTitle updates a menu item's text. Used for the live status line.
func (t *Tray) SetItemTitle(id int, title string) {
	if item := t.lookup(id); item != nil {
		item.SetTitle(title)
	}
}

// SetItemEnabled enables or disables a menu item
func (t *Tray) SetItemEnabled(id int, enabled bool) {
	if item := t.lookup(id); item != nil {
		if enabled {
			item.Enable()
		} else {
			item.Disable()
		}
	}
}

func (t *Tray) lookup(id int) *systray.MenuItem {
	if id >= 0 && id < len(t.items) && t.items[id] != nil {
		return t.items[id].item
	}
	return nil
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.onReady()

	// Wait for ready signal
	<-t.readyCh

	// Create menu items
	for _, menuItem := range t.items {
		if menuItem == nil {
			// Separator
			systray.AddSeparator()
			continue
		}

		item := systray.AddMenuItem(menuItem.Title, "")
		menuItem.item = item

		if menuItem.Callback == nil {
			item.Disable()
			continue
		}

		// Handle clicks in goroutine
		go func(mi *MenuItem) {
			for {
				select {
				case <-mi.item.ClickedCh:
					mi.Callback()
				case <-t.quitCh:
					return
				}
			}
		}(menuItem)
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// keyboardIcon renders the 16x16 tray glyph as a 32-bit ICO in memory:
// a dark keyboard body with two key rows and a space bar. Transparency
// comes from the alpha channel; the AND mask is left opaque.
func keyboardIcon() []byte {
	const (
		headerSize = 6
		dirSize    = 16
		dibSize    = 40
		pixelSize  = 16 * 16 * 4
		maskSize   = 16 * 4 // 1-bit mask rows padded to 4 bytes
	)
	icon := make([]byte, headerSize+dirSize+dibSize+pixelSize+maskSize)

	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	copy(icon[6:22], []byte{
		16, 16, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x68, 0x04, 0x00, 0x00, // bytes in resource: dib + pixels + mask
		0x16, 0x00, 0x00, 0x00, // data offset
	})
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00, // dib header size
		0x10, 0x00, 0x00, 0x00, // width 16
		0x20, 0x00, 0x00, 0x00, // height 32, doubled to cover the mask
		0x01, 0x00, // planes
		0x20, 0x00, // 32 bpp
		0x00, 0x00, 0x00, 0x00, // no compression
		0x40, 0x04, 0x00, 0x00, // image size: pixels + mask
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})

	// Pixel rows are stored bottom-up as BGRA.
	set := func(x, y int, b, g, r byte) {
		off := headerSize + dirSize + dibSize + ((15-y)*16+x)*4
		icon[off], icon[off+1], icon[off+2], icon[off+3] = b, g, r, 0xFF
	}

	for y := 4; y <= 11; y++ {
		for x := 1; x <= 14; x++ {
			set(x, y, 64, 58, 52) // body
		}
	}
	for _, y := range []int{6, 8} {
		for x := 3; x <= 13; x += 2 {
			set(x, y, 230, 226, 222) // keys
		}
	}
	for x := 5; x <= 10; x++ {
		set(x, 10, 230, 226, 222) // space bar
	}

	return icon
}
