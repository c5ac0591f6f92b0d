// Package web is the local UI bridge: it serves the browser shell,
// exposes the current session state, and carries actions and state
// updates over a websocket.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"

	"github.com/scard-game/scard/internal/game"
	"github.com/scard-game/scard/internal/notify"
	"github.com/scard-game/scard/internal/state"
)

//go:embed static
var staticFiles embed.FS

// SessionController reacts to wallet connect/disconnect.
type SessionController interface {
	SetAddress(ctx context.Context, address string) error
}

// ActionController runs player actions.
type ActionController interface {
	CreateGame(ctx context.Context) error
	MovePlayer(ctx context.Context, dir game.Direction) error
	Fight(ctx context.Context) error
	Flee(ctx context.Context) error
	AcknowledgeEncounter() error
}

// Server wires the HTTP routes and the websocket hub.
type Server struct {
	hub     *Hub
	store   *state.Store
	session SessionController
	actions ActionController
}

func NewServer(store *state.Store, session SessionController, actions ActionController) *Server {
	s := &Server{
		hub:     NewHub(),
		store:   store,
		session: session,
		actions: actions,
	}
	store.Subscribe(func(snap state.Snapshot) {
		s.hub.Broadcast(stateMessage(snap))
	})
	return s
}

// Sink returns a notification sink that pushes to all clients.
func (s *Server) Sink() notify.Sink {
	return notify.SinkFunc(func(n notify.Notification) {
		s.hub.Broadcast(map[string]any{"type": "notification", "notification": n})
	})
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /play", s.handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /ws", s.serveWs)
	mux.Handle("GET /static/", http.FileServerFS(staticFiles))
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stateMessage(s.store.Snapshot()))
}

// stateMessage is the wire form of a store snapshot.
func stateMessage(snap state.Snapshot) map[string]any {
	msg := map[string]any{
		"type":      "state",
		"gameId":    snap.GameID,
		"status":    string(snap.Status),
		"busy":      snap.Busy,
		"resolving": snap.Resolving,
		"position":  map[string]any{"x": snap.Position.X, "y": snap.Position.Y},
		"player": map[string]any{
			"health":        snap.Player.Health,
			"attackPoints":  snap.Player.AttackPoints,
			"damagePoints":  snap.Player.DamagePoints,
			"hasFreeAttack": snap.Player.HasFreeAttack,
			"hasFreeFlee":   snap.Player.HasFreeFlee,
		},
	}
	if snap.Encounter != nil {
		enc := map[string]any{"type": string(snap.Encounter.Kind)}
		if snap.Encounter.Beast != nil {
			enc["beast"] = map[string]any{
				"type":         string(snap.Encounter.Beast.Kind),
				"attackPoints": snap.Encounter.Beast.AttackPoints,
				"damagePoints": snap.Encounter.Beast.DamagePoints,
			}
		}
		msg["encounter"] = enc
	}
	return msg
}

// indexPage is the minimal shell; rendering happens in the browser
// bundle the shell loads.
const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>SCARD</title></head>
<body>
<div id="app"></div>
<script src="/static/app.js"></script>
</body>
</html>
`
