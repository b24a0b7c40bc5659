package landsync

import "github.com/google/uuid"

// LandID identifies a single room instance.
type LandID string

// PlayerID identifies a player across reconnects. A player may hold more than
// one ClientID over the lifetime of a session (tab duplication, reconnects).
type PlayerID string

// ClientID identifies one connected transport (a socket, a tab).
type ClientID string

// SessionID identifies one join-to-leave span of a player inside a Land.
type SessionID string

// PlayerSlot is a small dense index assigned to a player for the lifetime of
// their session inside a Land, used by perPlayerSlice policies to pick the
// element that belongs to the viewer without a map lookup.
type PlayerSlot int

// NoSlot is returned when a player has not been assigned a slot.
const NoSlot PlayerSlot = -1

// NewLandID returns a random LandID.
func NewLandID() LandID {
	return LandID(uuid.NewString())
}

// NewSessionID returns a random SessionID.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// NewClientID returns a random ClientID.
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}
