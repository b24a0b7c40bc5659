package landsync

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Context is handed to every join, action, event, and tick handler. It
// carries the identity of who triggered the call (where applicable), the
// binding tick ID, and a small set of hooks back into the owning
// LandKeeper. Tick handlers see TickID equal to the tick currently running;
// action and event handlers see the last tick that finished committing,
// since they run between ticks on the same serialized executor.
type Context struct {
	context.Context

	LandID    LandID
	PlayerID  PlayerID
	ClientID  ClientID
	SessionID SessionID
	DeviceID  string
	IsGuest   bool
	Metadata  map[string]string
	Slot      PlayerSlot
	TickID    int64

	Services *Services
	Logger   *logrus.Entry

	sendEvent func(ev Event, target EventTarget, to PlayerID, except PlayerID, toMany []PlayerID) error
	syncNow   func(playerID PlayerID)
	spawn     func(fn func())
}

// SendEvent emits an event to every player in the Land.
func (c *Context) SendEvent(eventType string, payload any) error {
	return c.sendEvent(NewEvent(eventType, payload), TargetAll, "", "", nil)
}

// SendEventTo emits an event to a single player.
func (c *Context) SendEventTo(playerID PlayerID, eventType string, payload any) error {
	return c.sendEvent(NewEvent(eventType, payload), TargetOne, playerID, "", nil)
}

// SendEventExcept emits an event to every player except one.
func (c *Context) SendEventExcept(exceptID PlayerID, eventType string, payload any) error {
	return c.sendEvent(NewEvent(eventType, payload), TargetExcept, "", exceptID, nil)
}

// SendEventToMany emits an event to a specific set of players.
func (c *Context) SendEventToMany(players []PlayerID, eventType string, payload any) error {
	return c.sendEvent(NewEvent(eventType, payload), TargetMany, "", "", players)
}

// SyncNow requests an out-of-band diff delivery to playerID instead of
// waiting for the next tick, e.g. immediately after an action visibly
// changes that player's own view.
func (c *Context) SyncNow(playerID PlayerID) {
	if c.syncNow != nil {
		c.syncNow(playerID)
	}
}

// Spawn runs fn on its own goroutine, detached from the calling handler but
// still logically owned by the Land; used for slow, non-blocking
// side-work (an HTTP call, a DB write) that shouldn't stall the serial
// executor. fn must not touch the Land's state directly - it should report
// its result back in through an action or event.
func (c *Context) Spawn(fn func()) {
	if c.spawn != nil {
		c.spawn(fn)
	}
}
