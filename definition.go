package landsync

import (
	"encoding/json"
	"time"
)

// ActionHandler answers an action envelope synchronously with a result or
// an error; the result is serialized back to the caller as the reply
// envelope's value.
type ActionHandler[S StateNode] func(ctx *Context, state S, payload json.RawMessage) (any, error)

// EventHandler reacts to a fire-and-forget client event. Its error is
// logged and swallowed; it never produces a reply and never aborts other
// event handling for the same tick.
type EventHandler[S StateNode] func(ctx *Context, state S, payload json.RawMessage) error

// TickHandler runs once per fixed-rate tick, before diffs are computed for
// that tick.
type TickHandler[S StateNode] func(ctx *Context, state S)

// JoinHandler decides whether a join attempt is allowed and, if so, what
// PlayerID and slot it is assigned.
type JoinHandler[S StateNode] func(ctx *Context, state S, sessionPayload json.RawMessage) JoinDecision

// LeaveHandler reacts to a player's last client disconnecting.
type LeaveHandler[S StateNode] func(ctx *Context, state S, playerID PlayerID)

// ShutdownHandler runs once when a Land is torn down, after its last tick.
type ShutdownHandler[S StateNode] func(ctx *Context, state S)

// JoinDecision is returned by a JoinHandler.
type JoinDecision struct {
	Allowed  bool
	PlayerID PlayerID
	Slot     PlayerSlot
	Reason   *EngineError
}

// Allow accepts the join under playerID, assigning it slot.
func Allow(playerID PlayerID, slot PlayerSlot) JoinDecision {
	return JoinDecision{Allowed: true, PlayerID: playerID, Slot: slot}
}

// Deny rejects the join with a structured reason.
func Deny(reason *EngineError) JoinDecision {
	return JoinDecision{Allowed: false, Reason: reason}
}

// LandDefinition describes everything a LandKeeper needs to run one kind of
// room: how to build its initial state, its tick rate, and the handlers
// that react to joins, leaves, actions, events, and ticks.
type LandDefinition[S StateNode] struct {
	NewState func() S

	TickRate    time.Duration
	IdleTimeout time.Duration

	Actions map[string]ActionHandler[S]
	Events  map[string]EventHandler[S]

	OnJoin     JoinHandler[S]
	OnLeave    LeaveHandler[S]
	OnTick     TickHandler[S]
	OnShutdown ShutdownHandler[S]

	// AllowedClientEventIdentifiers, when non-empty, restricts which event
	// identifiers a client may send; anything else is dropped silently
	// before it reaches Events.
	AllowedClientEventIdentifiers map[string]bool

	// MaxPlayers caps the number of distinct PlayerIDs a Land admits at
	// once; 0 means unlimited. Enforced after OnJoin allows the attempt but
	// before the player is actually registered, so a handler that denies
	// its own joins for other reasons still runs first.
	MaxPlayers int

	// AllowPublic marks a Land as joinable by anyone who knows its LandID,
	// as opposed to one that's only reachable through some
	// out-of-band invite the caller already validated. The engine itself
	// never looks this up for routing; it exists for a transport layer to
	// consult before even calling Join.
	AllowPublic bool
}

// NewLandDefinition starts building a definition around a state
// constructor.
func NewLandDefinition[S StateNode](newState func() S) *LandDefinition[S] {
	return &LandDefinition[S]{
		NewState:    newState,
		TickRate:    50 * time.Millisecond,
		IdleTimeout: 30 * time.Second,
		Actions:     make(map[string]ActionHandler[S]),
		Events:      make(map[string]EventHandler[S]),
	}
}

// WithTickRate sets the fixed tick period.
func (d *LandDefinition[S]) WithTickRate(rate time.Duration) *LandDefinition[S] {
	d.TickRate = rate
	return d
}

// WithIdleTimeout sets how long an empty Land lingers before being
// destroyed.
func (d *LandDefinition[S]) WithIdleTimeout(timeout time.Duration) *LandDefinition[S] {
	d.IdleTimeout = timeout
	return d
}

// WithAction registers a handler for actionType.
func (d *LandDefinition[S]) WithAction(actionType string, handler ActionHandler[S]) *LandDefinition[S] {
	d.Actions[actionType] = handler
	return d
}

// WithEvent registers a handler for eventType.
func (d *LandDefinition[S]) WithEvent(eventType string, handler EventHandler[S]) *LandDefinition[S] {
	d.Events[eventType] = handler
	return d
}

// WithJoin sets the join handler.
func (d *LandDefinition[S]) WithJoin(handler JoinHandler[S]) *LandDefinition[S] {
	d.OnJoin = handler
	return d
}

// WithLeave sets the leave handler.
func (d *LandDefinition[S]) WithLeave(handler LeaveHandler[S]) *LandDefinition[S] {
	d.OnLeave = handler
	return d
}

// WithTick sets the per-tick handler.
func (d *LandDefinition[S]) WithTick(handler TickHandler[S]) *LandDefinition[S] {
	d.OnTick = handler
	return d
}

// WithShutdown sets the shutdown handler.
func (d *LandDefinition[S]) WithShutdown(handler ShutdownHandler[S]) *LandDefinition[S] {
	d.OnShutdown = handler
	return d
}

// WithMaxPlayers caps how many distinct players a Land built from this
// definition admits at once. 0 (the default) means unlimited.
func (d *LandDefinition[S]) WithMaxPlayers(max int) *LandDefinition[S] {
	d.MaxPlayers = max
	return d
}

// WithAllowPublic marks the Land as joinable by anyone who knows its
// LandID, for a transport layer to consult before routing a join.
func (d *LandDefinition[S]) WithAllowPublic(allow bool) *LandDefinition[S] {
	d.AllowPublic = allow
	return d
}
