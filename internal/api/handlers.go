package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/veltalldev/hid-server/internal/autostart"
	"github.com/veltalldev/hid-server/internal/config"
	"github.com/veltalldev/hid-server/internal/engine"
	"github.com/veltalldev/hid-server/internal/macro"
	"github.com/veltalldev/hid-server/internal/mouse"
	"github.com/veltalldev/hid-server/internal/network"
	"github.com/veltalldev/hid-server/internal/protocol"
	"github.com/veltalldev/hid-server/internal/scripts"
	"github.com/veltalldev/hid-server/internal/session"
)

type macroResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Script  string `json:"script,omitempty"`
}

type statusResponse struct {
	Status        string `json:"status"`
	CurrentScript string `json:"current_script,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
}

type scriptsResponse struct {
	Success bool                   `json:"success"`
	Scripts []protocol.ScriptEntry `json:"scripts"`
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type sessionResponse struct {
	Success      bool          `json:"success"`
	SessionState session.State `json:"session_state"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// pathSuffix extracts the path parameter after the operation name,
// with or without the /api/v1 prefix.
func pathSuffix(r *http.Request, op string) string {
	p := strings.TrimPrefix(r.URL.Path, "/api/v1")
	p = strings.TrimPrefix(p, "/"+op)
	return strings.TrimPrefix(p, "/")
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// handleServerInfo handles GET / and GET /api/v1/
func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	if p := r.URL.Path; p != "/" && p != "/api/v1" && p != "/api/v1/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.configMgr.Get()

	scriptCount := 0
	if entries, err := s.store.List(); err == nil {
		scriptCount = len(entries)
	}

	writeJSON(w, map[string]interface{}{
		"message":          "HID Server",
		"version":          s.version,
		"status":           "running",
		"script_directory": cfg.Storage.ScriptsDir,
		"images_directory": cfg.Storage.ImagesDir,
		"script_count":     scriptCount,
		"keyboard_enabled": s.engine.KeyboardDevice().Available,
		"mouse_enabled":    s.engine.MouseDevice().Available,
		"uptime_seconds":   int(time.Since(s.startedAt).Seconds()),
	})
}

// handleDebug handles GET /api/v1/debug - dumps server state for support
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.configMgr.Get()
	wd, _ := os.Getwd()

	keyboardDev := s.engine.KeyboardDevice()
	mouseDev := s.engine.MouseDevice()

	writeJSON(w, map[string]interface{}{
		"working_directory": wd,
		"directories": map[string]string{
			"scripts": cfg.Storage.ScriptsDir,
			"images":  cfg.Storage.ImagesDir,
			"certs":   cfg.Storage.CertsDir,
		},
		"directories_exist": map[string]bool{
			"scripts": dirExists(cfg.Storage.ScriptsDir),
			"images":  dirExists(cfg.Storage.ImagesDir),
			"certs":   dirExists(cfg.Storage.CertsDir),
		},
		"file_counts": map[string]int{
			"scripts": countFiles(cfg.Storage.ScriptsDir),
			"images":  countFiles(cfg.Storage.ImagesDir),
		},
		"hid_devices": map[string]interface{}{
			"keyboard": map[string]interface{}{
				"path":      keyboardDev.Path,
				"available": keyboardDev.Available,
			},
			"mouse": map[string]interface{}{
				"path":      mouseDev.Path,
				"available": mouseDev.Available,
			},
		},
		"trace_only":        cfg.Devices.TraceOnly,
		"tls_enabled":       cfg.Server.TLSEnabled,
		"autostart_enabled": autostart.IsEnabled(),
	})
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

// handleStartMacro handles POST /api/v1/start_macro
func (s *Server) handleStartMacro(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ScriptName string `json:"script_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ScriptName == "" {
		http.Error(w, "Missing script_name", http.StatusBadRequest)
		return
	}

	name := scripts.Sanitize(req.ScriptName)
	source, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, scripts.ErrNotFound) {
			http.Error(w, fmt.Sprintf("Script file not found: %s", req.ScriptName), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.engine.StartMacro(name, source); err != nil {
		var parseErr *macro.ParseError
		switch {
		case errors.As(err, &parseErr):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, engine.ErrBusy):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, macroResponse{
		Success: true,
		Message: "Macro started successfully",
		Script:  name,
	})
}

// handlePauseMacro handles POST /api/v1/pause_macro
func (s *Server) handlePauseMacro(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.engine.Status().State == "paused" {
		writeJSON(w, macroResponse{Success: true, Message: "Macro is already paused"})
		return
	}

	if err := s.engine.Pause(); err != nil {
		http.Error(w, "No macro currently running", http.StatusBadRequest)
		return
	}

	writeJSON(w, macroResponse{Success: true, Message: "Macro paused successfully"})
}

// handleResumeMacro handles POST /api/v1/resume_macro
func (s *Server) handleResumeMacro(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.engine.Status().State == "running" {
		writeJSON(w, macroResponse{Success: true, Message: "Macro is not paused"})
		return
	}

	if err := s.engine.Resume(); err != nil {
		http.Error(w, "No macro currently running", http.StatusBadRequest)
		return
	}

	writeJSON(w, macroResponse{Success: true, Message: "Macro resumed successfully"})
}

// handleStopMacro handles POST /api/v1/stop_macro
func (s *Server) handleStopMacro(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Stopping with nothing running is not an error
	if err := s.engine.Stop(); err != nil {
		writeJSON(w, macroResponse{Success: true, Message: "No macro currently running"})
		return
	}

	writeJSON(w, macroResponse{Success: true, Message: "Macro stopped successfully"})
}

// handleStatus handles GET /api/v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.engine.Status()
	resp := statusResponse{
		Status:        st.State,
		CurrentScript: st.Script,
	}
	if !st.StartedAt.IsZero() {
		resp.StartedAt = st.StartedAt.Format(time.RFC3339)
	}

	writeJSON(w, resp)
}

// handleScripts handles GET /api/v1/scripts
func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := s.store.List()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list scripts: %v", err), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []protocol.ScriptEntry{}
	}

	writeJSON(w, scriptsResponse{Success: true, Scripts: entries})
}

// handleUploadScript handles POST /api/v1/upload_script (multipart form)
func (s *Server) handleUploadScript(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.configMgr.Get()
	r.Body = http.MaxBytesReader(w, r.Body, int64(cfg.Server.MaxUploadMB+1)<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file selected", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read upload: %v", err), http.StatusBadRequest)
		return
	}

	name, err := s.store.Save(header.Filename, content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, uploadResponse{
		Success:  true,
		Message:  fmt.Sprintf("Script %s uploaded successfully", name),
		Filename: name,
		Path:     filepath.Join(s.store.Dir(), name),
	})
}

// handleDeleteScript handles DELETE /api/v1/delete_script/{name}
func (s *Server) handleDeleteScript(w http.ResponseWriter, r *http.Request) {
	if r.Method != "DELETE" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := pathSuffix(r, "delete_script")
	if name == "" {
		http.Error(w, "Missing script name", http.StatusBadRequest)
		return
	}

	if err := s.store.Delete(name); err != nil {
		if errors.Is(err, scripts.ErrNotFound) {
			http.Error(w, fmt.Sprintf("Script not found: %s", name), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, macroResponse{
		Success: true,
		Message: fmt.Sprintf("Script %s deleted successfully", name),
	})
}

// handleImage handles GET /api/v1/image/{name}
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := pathSuffix(r, "image")
	if name == "" {
		http.Error(w, "Missing script name", http.StatusBadRequest)
		return
	}

	path, mediaType, err := s.store.ImagePath(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mediaType)
	http.ServeFile(w, r, path)
}

// handleSendKey handles POST /api/v1/send_key
func (s *Server) handleSendKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Key    string `json:"key"`
		HoldMs int    `json:"hold_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		http.Error(w, "Missing key", http.StatusBadRequest)
		return
	}

	if err := s.engine.SendKey(req.Key, req.HoldMs); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, macroResponse{Success: true, Message: fmt.Sprintf("Key %s sent", req.Key)})
}

// handleSendKeyCombo handles POST /api/v1/send_key_combo
func (s *Server) handleSendKeyCombo(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Combo  string `json:"combo"`
		HoldMs int    `json:"hold_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Combo == "" {
		http.Error(w, "Missing combo", http.StatusBadRequest)
		return
	}

	if err := s.engine.SendCombo(req.Combo, req.HoldMs); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, macroResponse{Success: true, Message: fmt.Sprintf("Combo %s sent", req.Combo)})
}

// handleMoveMouse handles POST /api/v1/move_mouse
func (s *Server) handleMoveMouse(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
		http.Error(w, "Missing x or y", http.StatusBadRequest)
		return
	}

	if err := s.engine.MoveMouse(*req.X, *req.Y); err != nil {
		s.writeMouseError(w, err)
		return
	}

	writeJSON(w, macroResponse{Success: true, Message: fmt.Sprintf("Mouse moved to (%d, %d)", *req.X, *req.Y)})
}

// handleClick handles POST /api/v1/click
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
		http.Error(w, "Missing x or y", http.StatusBadRequest)
		return
	}

	if err := s.engine.Click(*req.X, *req.Y); err != nil {
		s.writeMouseError(w, err)
		return
	}

	writeJSON(w, macroResponse{Success: true, Message: fmt.Sprintf("Clicked at (%d, %d)", *req.X, *req.Y)})
}

func (s *Server) writeMouseError(w http.ResponseWriter, err error) {
	var oob *mouse.OutOfBoundsError
	switch {
	case errors.Is(err, engine.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &oob):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleSessionState handles GET (read), POST (update) and DELETE (clear)
// for the dashboard session state
func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		writeJSON(w, sessionResponse{Success: true, SessionState: s.sessions.Get()})

	case "POST":
		var upd session.Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, "Invalid session state data", http.StatusBadRequest)
			return
		}

		st, err := s.sessions.Update(upd)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, sessionResponse{Success: true, SessionState: st})

	case "DELETE":
		writeJSON(w, sessionResponse{Success: true, SessionState: s.sessions.Clear()})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleConfig handles GET (read) and POST (update) for configuration
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		writeJSON(w, s.configMgr.Get())

	case "POST":
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			http.Error(w, "Invalid configuration data", http.StatusBadRequest)
			return
		}

		log.Printf("API: Receiving configuration update from %s", r.RemoteAddr)

		// Update in-memory config and save to disk
		s.configMgr.Set(&newCfg)
		if err := s.configMgr.Save(); err != nil {
			log.Printf("API: Failed to save received config: %v", err)
			http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]string{"status": "ok"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDiscover handles GET /api/v1/discover - scans LAN for other HID servers
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.configMgr.Get()
	log.Printf("API: Starting LAN scan on port %d", cfg.Server.Port)

	hosts, err := network.ScanLAN(cfg.Server.Port)
	if err != nil {
		log.Printf("API: Scan error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("API: Found %d HID server(s) on LAN", len(hosts))

	writeJSON(w, hosts)
}
