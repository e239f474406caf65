package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. It is the only goroutine that sends
// on or closes a client's channel.
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			latest := s.latest
			s.stateMutex.Unlock()

			// Send the current frame on connect
			if latest != nil {
				client.send <- frameMessage(latest)
			}

		case client := <-s.unregister:
			s.stateMutex.Lock()
			s.dropLocked(client)
			s.stateMutex.Unlock()

		case message := <-s.broadcast:
			s.stateMutex.Lock()
			s.broadcastLocked(message)
			s.stateMutex.Unlock()

		case req := <-s.requests:
			s.answer(req)

		case <-s.quit:
			s.stateMutex.Lock()
			for client := range s.clients {
				s.dropLocked(client)
			}
			s.stateMutex.Unlock()
			return
		}
	}
}

// broadcastLocked fans message out. Frames are resized per client range, once
// per distinct range.
func (s *DashboardServer) broadcastLocked(message interface{}) {
	var resized map[int]*wsMessage
	msg, isFrame := message.(*wsMessage)
	isFrame = isFrame && msg.Frame != nil

	for client := range s.clients {
		out := message
		if isFrame && client.rangeN > 0 && client.rangeN != msg.Frame.Range {
			if resized == nil {
				resized = make(map[int]*wsMessage)
			}
			m, ok := resized[client.rangeN]
			if !ok {
				m = frameMessage(frameAtRange(msg.Frame, client.rangeN))
				resized[client.rangeN] = m
			}
			out = m
		}

		select {
		case client.send <- out:
		default:
			// Client too slow, disconnect to prevent Hub blocking
			s.dropLocked(client)
		}
	}
}

func (s *DashboardServer) dropLocked(client *Client) {
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 64),
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

type clientCommand struct {
	Command string `json:"command"`
	Range   int    `json:"range,omitempty"`
}

type clientRequest struct {
	client *Client
	cmd    clientCommand
}

// HandleClientMessage parses a command from a browser and hands it to the hub,
// which owns the client's channel. The dashboard is read-only, so unknown
// commands are ignored.
func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Debug("Ignoring unparseable client message: %v", err)
		return
	}

	select {
	case s.requests <- clientRequest{client: client, cmd: cmd}:
	case <-s.quit:
	}
}

// answer runs on the hub goroutine.
func (s *DashboardServer) answer(req clientRequest) {
	client, cmd := req.client, req.cmd

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	if _, ok := s.clients[client]; !ok {
		return
	}

	var reply interface{}
	switch cmd.Command {
	case "snapshot":
		if s.latest != nil {
			reply = frameMessage(frameAtRange(s.latest, client.rangeN))
		}

	case "status":
		body := statusBody(s.latest, s.link)
		body["type"] = "status"
		if client.rangeN > 0 {
			body["range"] = client.rangeN
		}
		reply = body

	case "range":
		if cmd.Range <= 0 {
			reply = errorMessage("range must be a positive integer")
			break
		}
		client.rangeN = cmd.Range
		if s.latest != nil {
			reply = frameMessage(frameAtRange(s.latest, client.rangeN))
		} else {
			reply = &wsMessage{Type: "range", Range: client.rangeN}
		}

	default:
		return
	}

	if reply == nil {
		return
	}
	select {
	case client.send <- reply:
	default:
		s.Logger.Debug("Client send buffer full, reply to %q dropped", cmd.Command)
	}
}
