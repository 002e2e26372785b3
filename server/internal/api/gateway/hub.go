package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"Kasumi/server/internal/pkg/helpers"
	"Kasumi/server/internal/protocol"
	"Kasumi/server/internal/services/cipher"
)

// Client represents a connected WebSocket client
type Client struct {
	clientID int64
	conn     *websocket.Conn
	send     chan interface{}
	server   *Server
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket authenticates and upgrades a connection. The token comes
// from the query string or the Authorization header.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = extractToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		http.Error(w, "Missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := s.authSvc.ValidateToken(token)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket connection rejected")
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("WebSocket upgrade error")
		return
	}

	client := &Client{
		clientID: claims.ClientID,
		conn:     conn,
		send:     make(chan interface{}, 256),
		server:   s,
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}
	s.log.Infof("WebSocket client connected: client %d", claims.ClientID)

	go client.readPump()
	go client.writePump()
}

// runHub manages all connected clients until ctx is cancelled
func (s *Server) runHub(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for c := range s.clients {
				delete(s.clients, c)
				close(c.send)
			}
			s.mu.Unlock()
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			s.mu.Unlock()

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.mu.Unlock()
			s.log.Debugf("Client disconnected: %d", client.clientID)

		case message := <-s.broadcast:
			s.mu.RLock()
			// Targeted events go to every connection of that client only
			var target int64
			if wsEvent, ok := message.(*protocol.WebSocketEvent); ok {
				target = wsEvent.ClientID
			}
			sent := 0
			for c := range s.clients {
				if target != 0 && c.clientID != target {
					continue
				}
				select {
				case c.send <- message:
					sent++
				default:
					go s.drop(c)
				}
			}
			s.mu.RUnlock()
			s.log.Debugf("Hub delivered broadcast to %d connections", sent)
		}
	}
}

// drop asks the hub to forget a client
func (s *Server) drop(c *Client) {
	select {
	case s.unregister <- c:
	case <-s.done:
	}
}

// deliver sends a reply to one client unless the hub already dropped it
func (s *Server) deliver(c *Client, msg interface{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.clients[c] {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readPump reads cipher requests from the WebSocket connection and answers
// each one with a GatewayResponse
func (c *Client) readPump() {
	defer func() {
		c.server.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(2 * helpers.MaxTextLength)
	c.conn.SetReadDeadline(time.Now().Add(protocol.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(protocol.PongWait))
		return nil
	})

	for {
		var req protocol.CipherRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.log.WithError(err).Debug("WebSocket read error")
			}
			return
		}

		resp := c.server.processSocketRequest(context.Background(), c.clientID, req)
		if !c.server.deliver(c, resp) {
			return
		}
	}
}

func (s *Server) processSocketRequest(ctx context.Context, clientID int64, req protocol.CipherRequest) *protocol.GatewayResponse {
	resp := &protocol.GatewayResponse{
		ID:        req.ID,
		Type:      "cipher_result",
		Status:    "success",
		Timestamp: time.Now().Unix(),
	}

	if err := helpers.ValidateCipherRequest(req); err != nil {
		resp.Status, resp.Error = "error", err.Error()
		return resp
	}

	creq := cipher.Request{
		RequestID: req.ID,
		ClientID:  clientID,
		Mode:      req.Mode,
		KeyHex:    req.Key,
		IVHex:     req.IV,
		Text:      req.Text,
	}

	var (
		result *cipher.Response
		err    error
	)
	switch strings.ToLower(req.Direction) {
	case "", "encrypt":
		result, err = s.cipherSvc.Encrypt(ctx, creq)
	case "decrypt":
		result, err = s.cipherSvc.Decrypt(ctx, creq)
	default:
		resp.Status, resp.Error = "error", "direction must be encrypt or decrypt"
		return resp
	}
	if err != nil {
		resp.Status, resp.Error = "error", err.Error()
		return resp
	}

	resp.Data = result.ToProtocol(req.ID)
	return resp
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(protocol.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(protocol.WriteTimeout))
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(protocol.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
