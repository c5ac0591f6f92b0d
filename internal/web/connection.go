package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/scard-game/scard/internal/game"
	"github.com/scard-game/scard/internal/gameerr"
)

var upgrader = websocket.Upgrader{
	// The daemon serves only the local browser.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Action is one inbound client command.
type Action struct {
	Type      string `json:"type"`
	Address   string `json:"address,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Connection is one websocket client.
type Connection struct {
	ws  *websocket.Conn
	srv *Server

	writeMu sync.Mutex
}

func (c *Connection) send(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) sendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Web] marshal reply: %v", err)
		return
	}
	if err := c.send(websocket.TextMessage, data); err != nil {
		log.Printf("[Web] write reply: %v", err)
	}
}

// serveWs upgrades the request and starts the read loop.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Web] upgrade: %v", err)
		return
	}

	c := &Connection{ws: conn, srv: s}
	s.hub.Register(c)
	// New clients get the current state immediately.
	c.sendJSON(stateMessage(s.store.Snapshot()))
	go c.readLoop()
}

func (c *Connection) readLoop() {
	defer func() {
		c.srv.hub.Unregister(c)
		c.ws.Close()
	}()

	for {
		_, msgBytes, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var action Action
		if err := json.Unmarshal(msgBytes, &action); err != nil {
			log.Printf("[Web] bad action: %v", err)
			continue
		}
		c.dispatch(action)
	}
}

func (c *Connection) dispatch(action Action) {
	ctx := context.Background()
	var err error
	switch action.Type {
	case "connect":
		err = c.srv.session.SetAddress(ctx, action.Address)
	case "disconnect":
		err = c.srv.session.SetAddress(ctx, "")
	case "create":
		err = c.srv.actions.CreateGame(ctx)
	case "move":
		err = c.srv.actions.MovePlayer(ctx, game.Direction(action.Direction))
	case "fight":
		err = c.srv.actions.Fight(ctx)
	case "flee":
		err = c.srv.actions.Flee(ctx)
	case "acknowledge":
		err = c.srv.actions.AcknowledgeEncounter()
	default:
		log.Printf("[Web] unknown action type %q", action.Type)
		return
	}
	if err != nil {
		c.sendJSON(errorMessage(err))
	}
}

func errorMessage(err error) map[string]any {
	code := gameerr.CodeOf(err)
	return map[string]any{
		"type":    "error",
		"code":    string(code),
		"message": gameerr.Message(code),
	}
}
