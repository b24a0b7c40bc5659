// Command example wires up a minimal counter room: a broadcast counter, a
// per-player guess map, two actions ("increment" and "guess"), and one join
// handler. It exists to be read, not benchmarked.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/landkeeper/landsync"
	"github.com/sirupsen/logrus"
)

// CounterState is a tiny room: a shared counter everyone sees, and a
// per-player "guess" that only its owner can read - each player's entry in
// Guesses is synced to that player alone, never to anyone else.
type CounterState struct {
	landsync.Tracking

	Count   int32
	Guesses map[string]int32
}

var counterSchema = landsync.NewSchemaBuilder("CounterState").
	Field("Count", landsync.Broadcast()).
	Field("Guesses", landsync.PerPlayer(nil)).
	Build()

func (s *CounterState) Schema() *landsync.Schema { return counterSchema }

func (s *CounterState) MarkAllDirty() { s.Tracking.MarkAllDirty(counterSchema.FieldCount()) }

func (s *CounterState) GetFieldValue(index uint8) interface{} {
	switch index {
	case 0:
		return s.Count
	case 1:
		return s.Guesses
	}
	return nil
}

func (s *CounterState) SetCount(v int32) {
	if s.Count != v {
		s.Count = v
		s.Changes().Mark(0, landsync.FieldOpReplace)
	}
}

func (s *CounterState) SetGuess(playerID string, v int32) {
	if s.Guesses == nil {
		s.Guesses = make(map[string]int32)
	}
	if s.Guesses[playerID] == v {
		return
	}
	s.Guesses[playerID] = v
	s.Changes().Mark(1, landsync.FieldOpReplace)
}

func newCounterState() *CounterState {
	return &CounterState{Tracking: landsync.NewTracking()}
}

type incrementPayload struct {
	By int32 `json:"by"`
}

type guessPayload struct {
	Value int32 `json:"value"`
}

func buildDefinition() *landsync.LandDefinition[*CounterState] {
	def := landsync.NewLandDefinition(newCounterState).
		WithTickRate(100 * time.Millisecond).
		WithIdleTimeout(30 * time.Second).
		WithJoin(func(ctx *landsync.Context, state *CounterState, sessionPayload json.RawMessage) landsync.JoinDecision {
			return landsync.Allow(landsync.PlayerID(ctx.ClientID), landsync.NoSlot)
		}).
		WithAction("increment", func(ctx *landsync.Context, state *CounterState, payload json.RawMessage) (any, error) {
			var p incrementPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, landsync.WrapEngineError(landsync.ActionInvalidPayload, "invalid increment payload", err)
			}
			state.SetCount(state.Count + p.By)
			return map[string]int32{"count": state.Count}, nil
		}).
		WithAction("guess", func(ctx *landsync.Context, state *CounterState, payload json.RawMessage) (any, error) {
			var p guessPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, landsync.WrapEngineError(landsync.ActionInvalidPayload, "invalid guess payload", err)
			}
			state.SetGuess(string(ctx.PlayerID), p.Value)
			return p.Value, nil
		})
	return def
}

func main() {
	logger := logrus.NewEntry(logrus.StandardLogger())
	def := buildDefinition()
	manager := landsync.NewManager[*CounterState](def, logger, nil, landsync.DeliveryHooks[*CounterState]{
		OnUpdate: func(playerID landsync.PlayerID, clientID landsync.ClientID, update landsync.StateUpdate) {
			fmt.Printf("update -> %s: kind=%v\n", playerID, update.Kind)
		},
	})

	ctx := context.Background()
	keeper, err := manager.CreateLand("room-1")
	if err != nil {
		panic(err)
	}

	reply, engineErr := keeper.Join(ctx, landsync.NewSessionID(), landsync.NewClientID(), "", false, nil, nil)
	if engineErr != nil {
		panic(engineErr)
	}
	fmt.Printf("joined as %s, snapshot=%v\n", reply.PlayerID, reply.Snapshot)

	payload, _ := json.Marshal(incrementPayload{By: 3})
	value, engineErr := keeper.HandleAction(ctx, reply.PlayerID, landsync.NewClientID(), landsync.NewSessionID(), "increment", payload)
	if engineErr != nil {
		panic(engineErr)
	}
	fmt.Printf("action result: %v\n", value)

	time.Sleep(200 * time.Millisecond)
	_ = manager.Shutdown(ctx)
}
