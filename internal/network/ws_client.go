package network

import (
	"crypto/tls"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/veltalldev/hid-server/internal/protocol"
)

// WSClient maintains a WebSocket connection to a HID server and feeds
// its pushes into callbacks. It reconnects on its own until closed.
type WSClient struct {
	hostAddr string
	token    string
	useTLS   bool
	send     chan protocol.Message
	done     chan struct{}

	// Identity reported in the auth message
	ClientName    string
	ClientVersion string

	// Callbacks
	OnStatus    func(protocol.StatusPayload)
	OnTrace     func(line string)
	OnScripts   func([]protocol.ScriptEntry)
	OnSession   func(protocol.SessionPayload)
	OnConnected func(connected bool)
}

// NewWSClient creates a new WebSocket client
func NewWSClient(hostAddr, token string, useTLS bool) *WSClient {
	return &WSClient{
		hostAddr: hostAddr,
		token:    token,
		useTLS:   useTLS,
		send:     make(chan protocol.Message, 100),
		done:     make(chan struct{}),
	}
}

// Start begins the client loop (connect & process)
func (c *WSClient) Start() {
	go c.loop()
}

func (c *WSClient) loop() {
	for {
		c.connect()

		// If connect returns, it means we disconnected. Wait a bit and retry.
		select {
		case <-c.done:
			return
		case <-time.After(5 * time.Second):
			log.Println("WS Client: Attempting reconnection...")
			continue
		}
	}
}

func (c *WSClient) connect() {
	scheme := "ws"
	if c.useTLS {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: c.hostAddr, Path: "/ws"}
	log.Printf("WS Client: Connecting to %s", u.String())

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		// The server uses a self-signed certificate
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := dialer.Dial(u.String(), header)
	if err != nil {
		log.Printf("WS Client: Connection failed: %v", err)
		return
	}
	defer conn.Close()

	log.Println("WS Client: Connected")
	if c.OnConnected != nil {
		c.OnConnected(true)
	}

	// Identify ourselves immediately
	c.sendAuth()

	// Start read/write pumps
	// specific done channel for this connection
	connDone := make(chan struct{})

	go func() {
		defer close(connDone)
		c.writePump(conn)
	}()

	c.readPump(conn)

	if c.OnConnected != nil {
		c.OnConnected(false)
	}

	// Ensure write pump stops
	<-connDone
}

func (c *WSClient) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS Client: Read error: %v", err)
			}
			break
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("WS Client: Invalid message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *WSClient) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second) // Ping ticker
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			jsonMsg, err := json.Marshal(msg)
			if err != nil {
				log.Printf("WS Client: Marshal error: %v", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, jsonMsg); err != nil {
				log.Printf("WS Client: Write error: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *WSClient) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeStatus:
		var payload protocol.StatusPayload
		bytes, _ := json.Marshal(msg.Payload)
		json.Unmarshal(bytes, &payload)

		if c.OnStatus != nil {
			c.OnStatus(payload)
		}

	case protocol.TypeTrace:
		var payload protocol.TracePayload
		bytes, _ := json.Marshal(msg.Payload)
		json.Unmarshal(bytes, &payload)

		if c.OnTrace != nil {
			c.OnTrace(payload.Line)
		}

	case protocol.TypeScripts:
		var payload protocol.ScriptsPayload
		bytes, _ := json.Marshal(msg.Payload)
		json.Unmarshal(bytes, &payload)

		if c.OnScripts != nil {
			c.OnScripts(payload.Scripts)
		}

	case protocol.TypeSession:
		var payload protocol.SessionPayload
		bytes, _ := json.Marshal(msg.Payload)
		json.Unmarshal(bytes, &payload)

		if c.OnSession != nil {
			c.OnSession(payload)
		}
	}
}

func (c *WSClient) sendAuth() {
	name := c.ClientName
	if name == "" {
		name = "ws-client"
	}
	c.send <- protocol.Message{
		Type: protocol.TypeAuth,
		Payload: protocol.AuthPayload{
			Token:         c.token,
			ClientName:    name,
			ClientVersion: c.ClientVersion,
		},
	}
}

// Close stops the client
func (c *WSClient) Close() {
	close(c.done)
}
