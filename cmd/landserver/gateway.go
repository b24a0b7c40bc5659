package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/landkeeper/landsync"
	"github.com/sirupsen/logrus"
)

// LobbyState is the demo room: a round counter everyone sees, a per-player
// score map, and a server-only seed nobody ever receives. It is hand-written
// the way cmd/landgen would otherwise generate it for a type this small.
type LobbyState struct {
	landsync.Tracking

	Round   int32
	Players map[string]int32
	Seed    int64
}

var lobbySchema = landsync.NewSchemaBuilder("Lobby").
	Field("Round", landsync.Broadcast()).
	Field("Players", landsync.Broadcast()).
	Field("Seed", landsync.ServerOnly()).
	Build()

func (s *LobbyState) Schema() *landsync.Schema { return lobbySchema }

func (s *LobbyState) MarkAllDirty() { s.Tracking.MarkAllDirty(lobbySchema.FieldCount()) }

func (s *LobbyState) GetFieldValue(index uint8) interface{} {
	switch index {
	case 0:
		return s.Round
	case 1:
		obj := make(map[string]landsync.SnapshotValue, len(s.Players))
		for id, score := range s.Players {
			obj[id] = landsync.IntValue(int64(score))
		}
		return landsync.ObjectValue(obj)
	case 2:
		return s.Seed
	}
	return nil
}

func (s *LobbyState) SetRound(v int32) {
	if s.Round != v {
		s.Round = v
		s.Changes().Mark(0, landsync.FieldOpReplace)
	}
}

func (s *LobbyState) AddScore(playerID string, delta int32) {
	if s.Players == nil {
		s.Players = make(map[string]int32)
	}
	s.Players[playerID] += delta
	s.Changes().Mark(1, landsync.FieldOpReplace)
}

func (s *LobbyState) RemovePlayer(playerID string) {
	if _, ok := s.Players[playerID]; !ok {
		return
	}
	delete(s.Players, playerID)
	s.Changes().Mark(1, landsync.FieldOpReplace)
}

type scorePayload struct {
	Delta int32 `json:"delta"`
}

func newLobbyDefinition(cfg Config) *landsync.LandDefinition[*LobbyState] {
	return landsync.NewLandDefinition(func() *LobbyState { return &LobbyState{} }).
		WithTickRate(cfg.TickRate).
		WithIdleTimeout(cfg.IdleTimeout).
		WithJoin(func(ctx *landsync.Context, state *LobbyState, payload json.RawMessage) landsync.JoinDecision {
			playerID := landsync.PlayerID(ctx.ClientID)
			state.AddScore(string(playerID), 0)
			return landsync.Allow(playerID, landsync.NoSlot)
		}).
		WithLeave(func(ctx *landsync.Context, state *LobbyState, playerID landsync.PlayerID) {
			state.RemovePlayer(string(playerID))
		}).
		WithAction("score", func(ctx *landsync.Context, state *LobbyState, payload json.RawMessage) (any, error) {
			var p scorePayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, landsync.WrapEngineError(landsync.ActionInvalidPayload, "invalid score payload", err)
			}
			state.AddScore(string(ctx.PlayerID), p.Delta)
			return state.Players[string(ctx.PlayerID)], nil
		}).
		WithTick(func(ctx *landsync.Context, state *LobbyState) {
			state.SetRound(state.Round + 1)
		})
}

// connRegistry maps a live ClientID to the websocket connection serving it,
// letting DeliveryHooks push updates and events without threading transport
// state through the engine itself.
type connRegistry struct {
	mu    sync.RWMutex
	conns map[landsync.ClientID]*websocket.Conn
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[landsync.ClientID]*websocket.Conn)}
}

func (r *connRegistry) set(id landsync.ClientID, conn *websocket.Conn) {
	r.mu.Lock()
	r.conns[id] = conn
	r.mu.Unlock()
}

func (r *connRegistry) remove(id landsync.ClientID) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *connRegistry) writeJSON(id landsync.ClientID, v any) {
	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	_ = conn.WriteJSON(v)
}

// gateway wires a Manager to a minimal WebSocket transport. It exists to
// show how a real transport hands decoded envelopes to the engine; it is
// not part of the core, which stays transport-agnostic.
type gateway struct {
	manager  *landsync.Manager[*LobbyState]
	conns    *connRegistry
	upgrader websocket.Upgrader
	logger   *logrus.Entry
}

func newGateway(cfg Config, logger *logrus.Entry, metric *landsync.Metrics) *gateway {
	conns := newConnRegistry()
	hooks := landsync.DeliveryHooks[*LobbyState]{
		OnUpdate: func(playerID landsync.PlayerID, clientID landsync.ClientID, update landsync.StateUpdate) {
			conns.writeJSON(clientID, landsync.UpdateEnvelope{PlayerID: playerID, Update: update})
		},
		OnEvent: func(playerID landsync.PlayerID, clientID landsync.ClientID, event landsync.Event) {
			conns.writeJSON(clientID, landsync.EventEnvelope{PlayerID: playerID, Event: event})
		},
	}
	manager := landsync.NewManager[*LobbyState](newLobbyDefinition(cfg), logger, metric, hooks)
	return &gateway{
		manager: manager,
		conns:   conns,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// handleCreateLand is the admin endpoint the landserver CLI's `land create`
// subcommand calls.
func (g *gateway) handleCreateLand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "missing land id", http.StatusBadRequest)
		return
	}
	if _, err := g.manager.CreateLand(landsync.LandID(req.ID)); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleListLands is the admin endpoint the CLI's `land ls` subcommand calls.
func (g *gateway) handleListLands(w http.ResponseWriter, r *http.Request) {
	ids := g.manager.Lands()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(names)
}

// wireMessage is the discriminated envelope the demo gateway reads off the
// socket once a client has joined; landId/playerId/clientId/sessionId are
// filled in from the connection's own identity before the typed envelope is
// built and validated, since this transport never trusts those fields from
// the wire.
type wireMessage struct {
	Type       string          `json:"type"`
	ActionType string          `json:"actionType,omitempty"`
	EventType  string          `json:"eventType,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func (g *gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	landID := landsync.LandID(r.URL.Query().Get("landId"))
	if landID == "" {
		http.Error(w, "missing landId", http.StatusBadRequest)
		return
	}
	keeper, err := g.manager.GetOrCreateLand(landID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	clientID := landsync.NewClientID()
	reply, joinErr := keeper.Join(r.Context(), landsync.NewSessionID(), clientID, "", false, nil, nil)
	if joinErr != nil {
		_ = conn.WriteJSON(landsync.ReplyEnvelope{LandID: landID, Error: joinErr})
		return
	}
	g.conns.set(clientID, conn)
	defer g.conns.remove(clientID)
	_ = conn.WriteJSON(reply)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = conn.WriteJSON(landsync.ReplyEnvelope{LandID: landID, PlayerID: reply.PlayerID,
				Error: landsync.WrapEngineError(landsync.InvalidJSON, "malformed message", err)})
			continue
		}
		switch msg.Type {
		case "action":
			env := landsync.ActionEnvelope{
				LandID: landID, PlayerID: reply.PlayerID, ClientID: clientID,
				SessionID: landsync.NewSessionID(), ActionType: msg.ActionType, Payload: msg.Payload,
			}
			if err := env.Validate(); err != nil {
				_ = conn.WriteJSON(landsync.ReplyEnvelope{LandID: landID, PlayerID: reply.PlayerID,
					Error: landsync.WrapEngineError(landsync.MissingRequiredField, "invalid action envelope", err)})
				continue
			}
			value, engineErr := keeper.HandleAction(r.Context(), env.PlayerID, env.ClientID, env.SessionID, env.ActionType, env.Payload)
			_ = conn.WriteJSON(landsync.ReplyEnvelope{LandID: landID, PlayerID: reply.PlayerID, Value: value, Error: engineErr})
		case "event":
			env := landsync.ClientEventEnvelope{
				LandID: landID, PlayerID: reply.PlayerID, ClientID: clientID,
				SessionID: landsync.NewSessionID(), EventType: msg.EventType, Payload: msg.Payload,
			}
			if err := env.Validate(); err != nil {
				// fire-and-forget: a malformed event is dropped without a
				// reply, and the error HandleClientEvent returns below is
				// discarded the same way.
				continue
			}
			_ = keeper.HandleClientEvent(r.Context(), env.PlayerID, env.ClientID, env.SessionID, env.EventType, env.Payload)
		case "leave":
			keeper.Leave(r.Context(), reply.PlayerID, clientID)
			return
		default:
			_ = conn.WriteJSON(landsync.ReplyEnvelope{LandID: landID, PlayerID: reply.PlayerID,
				Error: landsync.NewEngineError(landsync.InvalidMessageFormat, fmt.Sprintf("unknown message type %q", msg.Type))})
		}
	}
	keeper.Leave(r.Context(), reply.PlayerID, clientID)
}
