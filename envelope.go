package landsync

import (
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	envelopeValidator     *validator.Validate
	envelopeValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	envelopeValidatorOnce.Do(func() {
		envelopeValidator = validator.New()
	})
	return envelopeValidator
}

// ActionEnvelope is the inbound message a transport decodes for a
// client-initiated action.
type ActionEnvelope struct {
	LandID     LandID          `json:"landId" validate:"required"`
	PlayerID   PlayerID        `json:"playerId" validate:"required"`
	ClientID   ClientID        `json:"clientId" validate:"required"`
	SessionID  SessionID       `json:"sessionId" validate:"required"`
	ActionType string          `json:"actionType" validate:"required"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Validate checks envelope-level structural requirements; it does not
// validate ActionType against the Land's registered handlers, which is the
// engine's job once the envelope is routed.
func (e *ActionEnvelope) Validate() error {
	return getValidator().Struct(e)
}

// ClientEventEnvelope is the inbound message for a fire-and-forget client
// event.
type ClientEventEnvelope struct {
	LandID    LandID          `json:"landId" validate:"required"`
	PlayerID  PlayerID        `json:"playerId" validate:"required"`
	ClientID  ClientID        `json:"clientId" validate:"required"`
	SessionID SessionID       `json:"sessionId" validate:"required"`
	EventType string          `json:"eventType" validate:"required"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Validate checks envelope-level structural requirements.
func (e *ClientEventEnvelope) Validate() error {
	return getValidator().Struct(e)
}

// JoinEnvelope is the inbound message requesting to join a Land.
type JoinEnvelope struct {
	LandID         LandID          `json:"landId" validate:"required"`
	ClientID       ClientID        `json:"clientId" validate:"required"`
	SessionID      SessionID       `json:"sessionId" validate:"required"`
	DeviceID       string          `json:"deviceId,omitempty"`
	IsGuest        bool            `json:"isGuest,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	SessionPayload json.RawMessage `json:"sessionPayload,omitempty"`
}

// Validate checks envelope-level structural requirements.
func (e *JoinEnvelope) Validate() error {
	return getValidator().Struct(e)
}

// LeaveEnvelope is the inbound message signaling a client disconnected.
type LeaveEnvelope struct {
	LandID   LandID   `json:"landId" validate:"required"`
	PlayerID PlayerID `json:"playerId" validate:"required"`
	ClientID ClientID `json:"clientId" validate:"required"`
}

// Validate checks envelope-level structural requirements.
func (e *LeaveEnvelope) Validate() error {
	return getValidator().Struct(e)
}

// ReplyEnvelope carries the result of a handled ActionEnvelope back to its
// caller, or a structured error when the action could not be handled.
type ReplyEnvelope struct {
	LandID   LandID       `json:"landId"`
	PlayerID PlayerID     `json:"playerId"`
	Value    any          `json:"value,omitempty"`
	Error    *EngineError `json:"error,omitempty"`
}

// UpdateEnvelope is the outbound per-player StateUpdate message.
type UpdateEnvelope struct {
	LandID   LandID      `json:"landId"`
	PlayerID PlayerID    `json:"playerId"`
	Update   StateUpdate `json:"update"`
}

// EventEnvelope is an outbound server-emitted event for one player.
type EventEnvelope struct {
	LandID   LandID   `json:"landId"`
	PlayerID PlayerID `json:"playerId"`
	Event    Event    `json:"event"`
}

// JoinReply is returned to a client after a successful join: the decision's
// assigned identity plus the first full snapshot for that player.
type JoinReply struct {
	LandID   LandID        `json:"landId"`
	PlayerID PlayerID      `json:"playerId"`
	Slot     PlayerSlot    `json:"slot"`
	Snapshot StateSnapshot `json:"snapshot"`
}
