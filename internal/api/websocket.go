package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veltalldev/hid-server/internal/engine"
	"github.com/veltalldev/hid-server/internal/protocol"
	"github.com/veltalldev/hid-server/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for now as this is a local network tool
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager handles WebSocket connections and broadcasting
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.RWMutex
	broadcast  chan protocol.Message
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
}

// WebSocketClient represents a connected dashboard or tray client
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	ip      string
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan protocol.Message, 64),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			m.clientsMu.Unlock()
			log.Printf("WS: New client registered from %s. Total clients: %d", client.ip, len(m.clients))

		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
				log.Printf("WS: Client unregistered from %s. Total clients: %d", client.ip, len(m.clients))
			}
			m.clientsMu.Unlock()

		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			return
		}
	}
}

func (m *WSManager) broadcastMessage(message protocol.Message) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("WS: Failed to marshal broadcast message: %v", err)
		return
	}

	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()

	for client := range m.clients {
		select {
		case client.send <- jsonMsg:
		default:
			close(client.send)
			delete(m.clients, client)
		}
	}
}

// enqueue queues a message for broadcast without blocking the caller. The
// engine's report path must never wait on WebSocket consumers, so the
// message is dropped when the queue is full.
func (m *WSManager) enqueue(message protocol.Message) {
	select {
	case m.broadcast <- message:
	default:
		log.Println("WS: broadcast queue full, message dropped")
	}
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, 256),
		ip:      r.RemoteAddr,
	}

	// Register client
	m.register <- client

	// Start pump goroutines
	go client.writePump()
	go client.readPump()

	// Prime the new client so it renders without waiting for the next change.
	client.push(protocol.Message{
		Type:    protocol.TypeStatus,
		Payload: statusPayload(m.server.engine.Status()),
	})
	if scripts, err := m.server.store.List(); err == nil {
		client.push(protocol.Message{
			Type:    protocol.TypeScripts,
			Payload: protocol.ScriptsPayload{Scripts: scripts},
		})
	}
	client.push(protocol.Message{
		Type:    protocol.TypeSession,
		Payload: sessionPayload(m.server.sessions.Get()),
	})
}

func (c *WebSocketClient) push(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS: Read error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WS: Invalid message format: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeAuth:
		var payload protocol.AuthPayload
		jsonBytes, _ := json.Marshal(msg.Payload)
		if err := json.Unmarshal(jsonBytes, &payload); err != nil {
			log.Printf("WS: Invalid auth payload: %v", err)
			return
		}
		log.Printf("WS: Client %s identified as %s %s", c.ip, payload.ClientName, payload.ClientVersion)

	case protocol.TypePing:
		// Application-level heartbeat, nothing to do.

	default:
		log.Printf("WS: Ignoring message type %q from %s", msg.Type, c.ip)
	}
}

// BroadcastStatus pushes an engine state change to all clients.
func (m *WSManager) BroadcastStatus(st engine.Status) {
	m.enqueue(protocol.Message{
		Type:    protocol.TypeStatus,
		Payload: statusPayload(st),
	})
}

// BroadcastTrace pushes one HID report trace line to all clients.
func (m *WSManager) BroadcastTrace(line string) {
	m.enqueue(protocol.Message{
		Type:    protocol.TypeTrace,
		Payload: protocol.TracePayload{Line: line},
	})
}

// BroadcastScripts pushes the current script list to all clients.
func (m *WSManager) BroadcastScripts() {
	scripts, err := m.server.store.List()
	if err != nil {
		log.Printf("WS: Failed to list scripts for broadcast: %v", err)
		return
	}
	m.enqueue(protocol.Message{
		Type:    protocol.TypeScripts,
		Payload: protocol.ScriptsPayload{Scripts: scripts},
	})
}

// BroadcastSession pushes a session state change to all clients.
func (m *WSManager) BroadcastSession(st session.State) {
	m.enqueue(protocol.Message{
		Type:    protocol.TypeSession,
		Payload: sessionPayload(st),
	})
}

func statusPayload(st engine.Status) protocol.StatusPayload {
	p := protocol.StatusPayload{
		State:  st.State,
		Script: st.Script,
	}
	if !st.StartedAt.IsZero() {
		p.StartedAt = st.StartedAt.Format(time.RFC3339)
	}
	return p
}

func sessionPayload(st session.State) protocol.SessionPayload {
	return protocol.SessionPayload{
		SelectedScript: st.SelectedScript,
		StepSize:       st.StepSize,
		LastUpdated:    st.LastUpdated,
	}
}
