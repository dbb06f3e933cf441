// HID Server - macro execution over USB HID gadget devices
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/veltalldev/hid-server/internal/api"
	"github.com/veltalldev/hid-server/internal/autostart"
	"github.com/veltalldev/hid-server/internal/config"
	"github.com/veltalldev/hid-server/internal/engine"
	"github.com/veltalldev/hid-server/internal/scripts"
	"github.com/veltalldev/hid-server/internal/session"
	"github.com/veltalldev/hid-server/internal/statsview"
)

var (
	version       = "1.0.0"
	configPath    = flag.String("config", "", "Path to config file (default: per-user config dir)")
	stats         = flag.Bool("stats", false, "Launch the runtime stats server")
	installAuto   = flag.Bool("install-autostart", false, "Install the login auto-start entry and exit")
	uninstallAuto = flag.Bool("uninstall-autostart", false, "Remove the login auto-start entry and exit")
	showVer       = flag.Bool("version", false, "Show version")
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	flag.Parse()

	if *showVer {
		fmt.Printf("hidserver version %s\n", version)
		return
	}

	if *installAuto {
		if err := autostart.Enable(); err != nil {
			log.Fatalf("Failed to install auto-start: %v", err)
		}
		fmt.Println("Auto-start installed")
		return
	}

	if *uninstallAuto {
		if err := autostart.Disable(); err != nil {
			log.Fatalf("Failed to remove auto-start: %v", err)
		}
		fmt.Println("Auto-start removed")
		return
	}

	// Initialize config
	var cfgMgr *config.Manager
	if *configPath != "" {
		cfgMgr = config.NewManagerAt(*configPath)
	} else {
		var err error
		cfgMgr, err = config.NewManager()
		if err != nil {
			log.Fatalf("Failed to initialize config: %v", err)
		}
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}

	runService(cfgMgr)
}

func runService(cfgMgr *config.Manager) {
	log.Println("HID Server starting...")

	cfg := cfgMgr.Get()

	// Script storage
	store, err := scripts.NewStore(cfg.Storage.ScriptsDir, cfg.Storage.ImagesDir, cfg.Server.MaxUploadMB)
	if err != nil {
		log.Fatalf("Failed to initialize script store: %v", err)
	}

	// Execution engine and session state
	eng := engine.New(cfg)
	sessions := session.NewManager()

	apiServer := api.NewServer(cfgMgr, eng, store, sessions, version)

	// Push script list changes made outside the API (scp, editors) to
	// connected clients.
	stopWatch, err := store.Watch(apiServer.BroadcastScripts)
	if err != nil {
		log.Printf("Warning: script directory watch failed: %v", err)
	} else {
		defer func() {
			if err := stopWatch(); err != nil {
				log.Printf("Warning: stopping script watch: %v", err)
			}
		}()
	}

	if *stats {
		statsview.Launch(os.Stderr)
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		// Cancel any running macro so held keys are released before the
		// process exits.
		if eng.Status().State != "idle" {
			if err := eng.Stop(); err != nil {
				log.Printf("Warning: stopping macro: %v", err)
			}
		}
		os.Exit(0)
	}()

	log.Println("HID Server running. Press Ctrl+C to stop.")
	if err := apiServer.Start(); err != nil {
		log.Fatalf("API server error: %v", err)
	}
}
