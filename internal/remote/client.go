// Package remote provides the HTTP client the command line tools use to
// talk to a HID server.
package remote

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/veltalldev/hid-server/internal/network"
	"github.com/veltalldev/hid-server/internal/protocol"
	"github.com/veltalldev/hid-server/internal/session"
)

// Result is the generic success/message response for macro and input
// operations.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Script  string `json:"script,omitempty"`
}

// Status mirrors the server's status response.
type Status struct {
	Status        string `json:"status"`
	CurrentScript string `json:"current_script"`
	StartedAt     string `json:"started_at"`
}

// UploadResult mirrors the server's upload response.
type UploadResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type scriptsResult struct {
	Success bool                   `json:"success"`
	Scripts []protocol.ScriptEntry `json:"scripts"`
}

type sessionResult struct {
	Success      bool          `json:"success"`
	SessionState session.State `json:"session_state"`
}

// Client is an authenticated HTTP client for one HID server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "http://192.168.1.20:8444". Self-signed server certificates are
// accepted.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks the unauthenticated health endpoint.
func (c *Client) Health() error {
	return c.do("GET", "/health", nil, nil)
}

// Info fetches the server info document.
func (c *Client) Info() (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do("GET", "/api/v1/", nil, &out)
	return out, err
}

// Debug fetches the server debug document.
func (c *Client) Debug() (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.do("GET", "/api/v1/debug", nil, &out)
	return out, err
}

// Status fetches the engine status.
func (c *Client) Status() (Status, error) {
	var out Status
	err := c.do("GET", "/api/v1/status", nil, &out)
	return out, err
}

// StartMacro starts the named script.
func (c *Client) StartMacro(name string) (Result, error) {
	var out Result
	err := c.do("POST", "/api/v1/start_macro", map[string]string{"script_name": name}, &out)
	return out, err
}

// PauseMacro pauses the running macro.
func (c *Client) PauseMacro() (Result, error) {
	var out Result
	err := c.do("POST", "/api/v1/pause_macro", nil, &out)
	return out, err
}

// ResumeMacro resumes a paused macro.
func (c *Client) ResumeMacro() (Result, error) {
	var out Result
	err := c.do("POST", "/api/v1/resume_macro", nil, &out)
	return out, err
}

// StopMacro cancels the running macro.
func (c *Client) StopMacro() (Result, error) {
	var out Result
	err := c.do("POST", "/api/v1/stop_macro", nil, &out)
	return out, err
}

// Scripts lists the stored scripts.
func (c *Client) Scripts() ([]protocol.ScriptEntry, error) {
	var out scriptsResult
	err := c.do("GET", "/api/v1/scripts", nil, &out)
	return out.Scripts, err
}

// UploadScript uploads a local .ahk file.
func (c *Client) UploadScript(localPath string, content []byte) (UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := part.Write(content); err != nil {
		return UploadResult{}, err
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/v1/upload_script", &body)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out UploadResult
	err = c.send(req, &out)
	return out, err
}

// DeleteScript removes a stored script.
func (c *Client) DeleteScript(name string) (Result, error) {
	var out Result
	err := c.do("DELETE", "/api/v1/delete_script/"+name, nil, &out)
	return out, err
}

// SendKey taps a single key. holdMs of 0 uses the server default.
func (c *Client) SendKey(key string, holdMs int) (Result, error) {
	var out Result
	err := c.do("POST", "/api/v1/send_key", map[string]interface{}{"key": key, "hold_ms": holdMs}, &out)
	return out, err
}

// SendCombo presses a key combination like "ctrl+alt+delete".
func (c *Client) SendCombo(combo string, holdMs int) (Result, error) {
	var out Result
	err := c.do("POST", "/api/v1/send_key_combo", map[string]interface{}{"combo": combo, "hold_ms": holdMs}, &out)
	return out, err
}

// MoveMouse moves the pointer to absolute screen coordinates.
func (c *Client) MoveMouse(x, y int) (Result, error) {
	var out Result
	err := c.do("POST", "/api/v1/move_mouse", map[string]int{"x": x, "y": y}, &out)
	return out, err
}

// Click moves to absolute screen coordinates and left-clicks.
func (c *Client) Click(x, y int) (Result, error) {
	var out Result
	err := c.do("POST", "/api/v1/click", map[string]int{"x": x, "y": y}, &out)
	return out, err
}

// Session fetches the dashboard session state.
func (c *Client) Session() (session.State, error) {
	var out sessionResult
	err := c.do("GET", "/api/v1/session_state", nil, &out)
	return out.SessionState, err
}

// UpdateSession applies a partial session update. Nil fields are left
// unchanged.
func (c *Client) UpdateSession(upd session.Update) (session.State, error) {
	var out sessionResult
	err := c.do("POST", "/api/v1/session_state", upd, &out)
	return out.SessionState, err
}

// ClearSession resets the session state to defaults.
func (c *Client) ClearSession() (session.State, error) {
	var out sessionResult
	err := c.do("DELETE", "/api/v1/session_state", nil, &out)
	return out.SessionState, err
}

// Discover asks the server to scan its LAN for other HID servers.
func (c *Client) Discover() ([]network.DiscoveredHost, error) {
	var out []network.DiscoveredHost
	err := c.do("GET", "/api/v1/discover", nil, &out)
	return out, err
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
