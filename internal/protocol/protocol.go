// Package protocol defines the WebSocket message types exchanged between
// the HID server, the dashboard, and the tray client.
package protocol

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeAuth is sent by a client immediately after connection to authenticate
	TypeAuth MessageType = "auth"

	// TypeStatus is pushed by the server whenever the engine state changes
	TypeStatus MessageType = "status"

	// TypeTrace is pushed by the server for every HID report trace line
	TypeTrace MessageType = "trace"

	// TypeScripts is pushed by the server when the script store changes
	TypeScripts MessageType = "scripts"

	// TypeSession is pushed by the server when the session state changes
	TypeSession MessageType = "session"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// AuthPayload is the payload for TypeAuth
type AuthPayload struct {
	Token         string `json:"token"`
	ClientName    string `json:"client_name"`
	ClientVersion string `json:"client_version"`
}

// StatusPayload is the payload for TypeStatus
type StatusPayload struct {
	State     string `json:"state"`
	Script    string `json:"script,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
}

// TracePayload is the payload for TypeTrace
type TracePayload struct {
	Line string `json:"line"`
}

// ScriptEntry describes one stored script for TypeScripts and the
// scripts API. Defined here as the shared wire shape so the scripts
// package and the API do not depend on each other.
type ScriptEntry struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	HasImage   bool      `json:"has_image"`
}

// ScriptsPayload is the payload for TypeScripts
type ScriptsPayload struct {
	Scripts []ScriptEntry `json:"scripts"`
}

// SessionPayload is the payload for TypeSession
type SessionPayload struct {
	SelectedScript string    `json:"selected_script,omitempty"`
	StepSize       float64   `json:"step_size"`
	LastUpdated    time.Time `json:"last_updated"`
}
