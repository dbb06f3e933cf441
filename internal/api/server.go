// Package api provides the HTTP and WebSocket control surface of the
// HID server.
package api

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/veltalldev/hid-server/internal/certs"
	"github.com/veltalldev/hid-server/internal/config"
	"github.com/veltalldev/hid-server/internal/engine"
	"github.com/veltalldev/hid-server/internal/network"
	"github.com/veltalldev/hid-server/internal/scripts"
	"github.com/veltalldev/hid-server/internal/session"
	"github.com/veltalldev/hid-server/internal/ui"
)

// Server exposes the engine, script store and session state over HTTP
type Server struct {
	configMgr *config.Manager
	engine    *engine.Engine
	store     *scripts.Store
	sessions  *session.Manager
	version   string
	startedAt time.Time
	token     string
	wsMgr     *WSManager
}

// NewServer creates a new API server and wires engine and session
// changes into the WebSocket feed.
func NewServer(configMgr *config.Manager, eng *engine.Engine, store *scripts.Store, sessions *session.Manager, version string) *Server {
	s := &Server{
		configMgr: configMgr,
		engine:    eng,
		store:     store,
		sessions:  sessions,
		version:   version,
		startedAt: time.Now(),
	}
	s.wsMgr = newWSManager(s)
	go s.wsMgr.start()

	eng.SetOnStatus(s.wsMgr.BroadcastStatus)
	eng.SetOnTrace(s.wsMgr.BroadcastTrace)
	sessions.RegisterChangeCallback(s.wsMgr.BroadcastSession)

	return s
}

// Handler builds the full route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "start_macro", s.handleStartMacro)
	s.route(mux, "pause_macro", s.handlePauseMacro)
	s.route(mux, "resume_macro", s.handleResumeMacro)
	s.route(mux, "stop_macro", s.handleStopMacro)
	s.route(mux, "status", s.handleStatus)
	s.route(mux, "scripts", s.handleScripts)
	s.route(mux, "upload_script", s.handleUploadScript)
	s.route(mux, "delete_script/", s.handleDeleteScript)
	s.route(mux, "image/", s.handleImage)
	s.route(mux, "send_key", s.handleSendKey)
	s.route(mux, "send_key_combo", s.handleSendKeyCombo)
	s.route(mux, "move_mouse", s.handleMoveMouse)
	s.route(mux, "click", s.handleClick)
	s.route(mux, "session_state", s.handleSessionState)
	s.route(mux, "config", s.handleConfig)
	s.route(mux, "discover", s.handleDiscover)
	s.route(mux, "debug", s.handleDebug)

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.Handle("/ui/", ui.Handler())

	// Subtree roots double as the server info endpoint, everything
	// else that falls through to them is a 404.
	mux.HandleFunc("/api/v1/", s.handleServerInfo)
	mux.HandleFunc("/", s.handleServerInfo)

	// CORS sits outside auth so browser preflights succeed without a token.
	return cors.AllowAll().Handler(s.authMiddleware(s.recoverMiddleware(mux)))
}

// route registers a handler under the /api/v1 prefix and under the bare
// legacy path older dashboard builds still call.
func (s *Server) route(mux *http.ServeMux, path string, handler http.HandlerFunc) {
	mux.HandleFunc("/api/v1/"+path, handler)
	mux.HandleFunc("/"+path, handler)
}

// Start starts the API server and blocks until it stops.
func (s *Server) Start() error {
	cfg := s.configMgr.Get()
	s.token = cfg.Server.APIToken

	// Use tcp4 explicitly to avoid IPv6-only binding issues on some hosts
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Diagnostic: Print all local IPs to console to help user verify
	log.Printf("--- Diagnostic: Network Interfaces ---")
	if ips, err := network.GetLocalIPs(); err == nil {
		for _, ip := range ips {
			log.Printf("  Found Local IPv4: %s", ip)
		}
	}
	log.Printf("--------------------------------------")

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		log.Printf("ERROR: API server failed to listen on %s: %v", addr, err)
		return err
	}

	server := &http.Server{
		Handler: s.Handler(),
	}

	if cfg.Server.TLSEnabled {
		certPath, keyPath, err := certs.EnsurePair(cfg.Storage.CertsDir)
		if err != nil {
			ln.Close()
			return err
		}
		log.Printf("Starting API server with TLS on %s", addr)
		if err := server.ServeTLS(ln, certPath, keyPath); err != nil && err != http.ErrServerClosed {
			log.Printf("ERROR: API server stopped: %v", err)
			return err
		}
		return nil
	}

	log.Printf("Starting API server on %s", addr)

	// This is blocking
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Printf("ERROR: API server stopped: %v", err)
		return err
	}
	return nil
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOV: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Log every request for debugging
		log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		// Skip auth for the health check and the static dashboard assets
		if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/ui/") {
			next.ServeHTTP(w, r)
			return
		}

		// If token is configured, verify it
		if s.token != "" {
			authHeader := r.Header.Get("Authorization")
			expectedAuth := "Bearer " + s.token

			if authHeader != expectedAuth {
				// Browsers cannot set headers on WebSocket dials, so the
				// dashboard passes the token as a query parameter.
				if !(r.URL.Path == "/ws" && r.URL.Query().Get("token") == s.token) {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

// BroadcastScripts pushes the current script list to all WebSocket
// clients. Wired to the script directory watcher in main.
func (s *Server) BroadcastScripts() {
	if s.wsMgr != nil {
		s.wsMgr.BroadcastScripts()
	}
}
