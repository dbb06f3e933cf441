// hidtray - system tray companion for a HID server
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"

	"github.com/veltalldev/hid-server/internal/config"
	"github.com/veltalldev/hid-server/internal/hotkey"
	"github.com/veltalldev/hid-server/internal/network"
	"github.com/veltalldev/hid-server/internal/protocol"
	"github.com/veltalldev/hid-server/internal/remote"
	"github.com/veltalldev/hid-server/internal/tray"
)

var (
	version    = "1.0.0"
	serverAddr = flag.String("server", "", "Server address as host:port (default: 127.0.0.1 and the configured port)")
	apiToken   = flag.String("token", "", "API token (default: from config)")
	useTLS     = flag.Bool("tls", false, "Connect over TLS (default: from config)")
	escapeKey  = flag.String("escape-hotkey", "Ctrl+Shift+F12", "Global hotkey that stops the running macro (empty to disable)")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	flag.Parse()

	if *showVer {
		fmt.Printf("hidtray version %s\n", version)
		return
	}

	// The tray usually runs next to the server, so the local config
	// supplies the defaults for anything not flagged.
	cfgMgr, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}
	cfg := cfgMgr.Get()

	addr := *serverAddr
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	}
	token := *apiToken
	if token == "" {
		token = cfg.Server.APIToken
	}
	tls := *useTLS
	if !flagPassed("tls") {
		tls = cfg.Server.TLSEnabled
	}

	scheme := "http"
	if tls {
		scheme = "https"
	}
	baseURL := fmt.Sprintf("%s://%s", scheme, addr)
	client := remote.NewClient(baseURL, token)

	t := tray.New("HID Server")

	connItem := t.AddMenuItem("Connecting...", nil)
	statusItem := t.AddMenuItem("Status: unknown", nil)

	t.AddSeparator()

	pauseItem := t.AddMenuItem("Pause Macro", func() {
		if res, err := client.PauseMacro(); err != nil {
			log.Printf("Pause error: %v", err)
		} else {
			log.Println(res.Message)
		}
	})

	resumeItem := t.AddMenuItem("Resume Macro", func() {
		if res, err := client.ResumeMacro(); err != nil {
			log.Printf("Resume error: %v", err)
		} else {
			log.Println(res.Message)
		}
	})

	stopItem := t.AddMenuItem("Stop Macro", func() {
		if res, err := client.StopMacro(); err != nil {
			log.Printf("Stop error: %v", err)
		} else {
			log.Println(res.Message)
		}
	})

	t.AddSeparator()

	t.AddMenuItem("Open Dashboard", func() {
		if err := browser.OpenURL(client.BaseURL() + "/ui/"); err != nil {
			log.Printf("Failed to open dashboard: %v", err)
		}
	})

	t.AddSeparator()

	t.AddMenuItem("Quit", func() {
		t.Stop()
	})

	// Live status over the server's WebSocket
	wsClient := network.NewWSClient(addr, token, tls)
	wsClient.ClientName = "hidtray"
	wsClient.ClientVersion = version

	wsClient.OnConnected = func(connected bool) {
		if connected {
			t.SetItemTitle(connItem, fmt.Sprintf("Connected to %s", addr))
		} else {
			t.SetItemTitle(connItem, "Disconnected (retrying...)")
			t.SetItemTitle(statusItem, "Status: unknown")
			t.SetItemEnabled(pauseItem, false)
			t.SetItemEnabled(resumeItem, false)
			t.SetItemEnabled(stopItem, false)
		}
	}

	wsClient.OnStatus = func(st protocol.StatusPayload) {
		title := fmt.Sprintf("Status: %s", st.State)
		if st.Script != "" {
			title += fmt.Sprintf(" (%s)", st.Script)
		}
		t.SetItemTitle(statusItem, title)
		t.SetItemEnabled(pauseItem, st.State == "running")
		t.SetItemEnabled(resumeItem, st.State == "paused")
		t.SetItemEnabled(stopItem, st.State != "idle")
	}

	wsClient.Start()

	// Emergency stop: a global chord that cancels playback even when the
	// tray has no focus. The macro is typing into another machine, so a
	// runaway script cannot be stopped from the target's own keyboard.
	if *escapeKey != "" {
		monitor := hotkey.New()
		err := monitor.Bind(*escapeKey, func() {
			log.Println("EMERGENCY: Escape hotkey pressed - stopping macro")
			if res, err := client.StopMacro(); err != nil {
				log.Printf("Stop error: %v", err)
			} else {
				log.Println(res.Message)
			}
		})
		if err != nil {
			log.Printf("Warning: invalid escape hotkey: %v", err)
		} else if err := monitor.Start(); err != nil {
			log.Printf("Warning: keyboard hook failed to start: %v", err)
		}
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		wsClient.Close()
		t.Stop()
	}()

	log.Printf("hidtray running against %s", baseURL)
	t.Run()
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}
