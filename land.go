package landsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DeliveryHooks lets the owner of a LandKeeper (normally a Manager) plug in
// how per-player updates and events actually reach a transport.
type DeliveryHooks[S StateNode] struct {
	OnUpdate func(playerID PlayerID, clientID ClientID, update StateUpdate)
	OnEvent  func(playerID PlayerID, clientID ClientID, event Event)
}

type playerSession struct {
	ClientIDs   map[ClientID]bool
	LastSession SessionID
	Services    *Services
	Slot        PlayerSlot
	DeviceID    string
	IsGuest     bool
	Metadata    map[string]string
}

// LandKeeper runs one Land: a single logical room with its own state, its
// own fixed-rate tick, and a serialized executor that joins, leaves,
// actions, events, and ticks all funnel through - so handler code never has
// to take a lock on the state itself.
type LandKeeper[S StateNode] struct {
	id     LandID
	def    *LandDefinition[S]
	state  S
	engine *SyncEngine
	logger *logrus.Entry
	metric *Metrics
	hooks  DeliveryHooks[S]

	mu        sync.RWMutex
	players   map[PlayerID]*playerSession
	freeSlots []PlayerSlot
	nextSlot  PlayerSlot

	actionCh chan func()
	doneCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// nextTickID is the TickID runTick will assign on its next call; it
	// starts at 0, so the first tick a Land ever runs is tick 0.
	// lastCommittedTickID is -1 until that first tick finishes, meaning "no
	// tick has committed yet" for any handler invoked before then.
	nextTickID          int64
	lastCommittedTickID int64

	events   *EventBuffer[PlayerID]
	recorder *ReplayRecorder

	persistFn       func(ctx context.Context, landID LandID, state S) error
	persistInterval time.Duration
	lastPersist     time.Time

	destroyMu    sync.Mutex
	destroyTimer *time.Timer
	onEmpty      func(id LandID)
}

// NewLandKeeper constructs a LandKeeper in the stopped state; call Run to
// start its actor loop.
func NewLandKeeper[S StateNode](id LandID, def *LandDefinition[S], logger *logrus.Entry, metric *Metrics, hooks DeliveryHooks[S]) *LandKeeper[S] {
	state := def.NewState()
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LandKeeper[S]{
		id:                  id,
		def:                 def,
		state:               state,
		engine:              NewSyncEngine(state),
		logger:              logger.WithField("land", string(id)),
		metric:              metric,
		hooks:               hooks,
		players:             make(map[PlayerID]*playerSession),
		actionCh:            make(chan func(), 64),
		doneCh:              make(chan struct{}),
		events:              NewEventBuffer[PlayerID](),
		recorder:            NewReplayRecorder(),
		lastCommittedTickID: -1,
	}
}

// ID returns the Land's identifier.
func (lk *LandKeeper[S]) ID() LandID { return lk.id }

// SetOnEmpty registers the callback invoked once a Land's player registry
// has stayed empty for IdleTimeout; the keeper schedules that timer itself,
// and a Manager uses the callback to destroy the Land.
func (lk *LandKeeper[S]) SetOnEmpty(fn func(id LandID)) { lk.onEmpty = fn }

// SetPersistFn configures a hook called at persistInterval and once more at
// shutdown, receiving the live state value. A zero interval disables periodic
// persistence but leaves the shutdown-time call active.
func (lk *LandKeeper[S]) SetPersistFn(fn func(ctx context.Context, landID LandID, state S) error, interval time.Duration) {
	lk.persistFn = fn
	lk.persistInterval = interval
}

// AddEffect registers a per-viewer snapshot transform applied every time
// that viewer's diff is computed; see SyncEngine.AddEffect.
func (lk *LandKeeper[S]) AddEffect(effect Effect[StateSnapshot, PlayerID]) {
	lk.engine.AddEffect(effect)
}

// Run starts the actor loop: a single goroutine that serially processes
// enqueued calls and fires a tick on a fixed-rate ticker. The ticker channel
// already drops ticks the consumer falls behind on, giving skip-not-queue
// drift correction without extra bookkeeping. Run returns as soon as the
// loop's goroutine is started; the loop itself exits once ctx is canceled
// or Stop is called.
func (lk *LandKeeper[S]) Run(ctx context.Context) {
	lk.wg.Add(1)
	go lk.loop(ctx)
}

func (lk *LandKeeper[S]) loop(ctx context.Context) {
	defer lk.wg.Done()
	lk.engine.WarmupBroadcast()
	ticker := time.NewTicker(lk.def.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lk.shutdown(ctx)
			return
		case <-lk.doneCh:
			lk.shutdown(ctx)
			return
		case fn := <-lk.actionCh:
			fn()
		case <-ticker.C:
			lk.runTick(ctx)
		}
	}
}

func (lk *LandKeeper[S]) shutdown(ctx context.Context) {
	if lk.def.OnShutdown != nil {
		func() {
			defer lk.recoverHandlerPanic("shutdown")
			lk.def.OnShutdown(lk.newContext(ctx, Context{TickID: lk.lastCommittedTickID}), lk.state)
		}()
	}
	if lk.persistFn != nil {
		if err := lk.persistFn(ctx, lk.id, lk.state); err != nil {
			lk.logger.WithError(err).Warn("final persist failed")
		}
	}
	lk.destroyMu.Lock()
	if lk.destroyTimer != nil {
		lk.destroyTimer.Stop()
	}
	lk.destroyMu.Unlock()
}

// Stop requests the actor loop to exit after running shutdown hooks, and
// waits for it to do so.
func (lk *LandKeeper[S]) Stop() {
	lk.stopOnce.Do(func() { close(lk.doneCh) })
	lk.wg.Wait()
}

func (lk *LandKeeper[S]) enqueue(fn func()) bool {
	select {
	case lk.actionCh <- fn:
		return true
	case <-lk.doneCh:
		return false
	}
}

func (lk *LandKeeper[S]) newContext(parent context.Context, partial Context) *Context {
	c := partial
	c.Context = parent
	c.LandID = lk.id
	c.Services = NewServices()
	c.Logger = lk.logger
	c.sendEvent = lk.enqueueEvent
	c.syncNow = lk.syncNow
	c.spawn = func(fn func()) { go fn() }
	return &c
}

func (lk *LandKeeper[S]) enqueueEvent(ev Event, target EventTarget, to PlayerID, except PlayerID, toMany []PlayerID) error {
	lk.events.Add(PendingEvent[PlayerID]{Event: ev, Target: target, To: to, Except: except, ToMany: toMany})
	return nil
}

func (lk *LandKeeper[S]) syncNow(playerID PlayerID) {
	lk.mu.RLock()
	sess, ok := lk.players[playerID]
	lk.mu.RUnlock()
	if !ok || lk.hooks.OnUpdate == nil {
		return
	}
	ctx := PolicyContext{Viewer: playerID, LandID: lk.id, Slot: sess.Slot, Metadata: sess.Metadata}
	update := lk.engine.GenerateDiff(ctx)
	if update.Kind == UpdateNoChange {
		return
	}
	for clientID := range sess.ClientIDs {
		lk.hooks.OnUpdate(playerID, clientID, update)
	}
}

func (lk *LandKeeper[S]) recoverHandlerPanic(what string) {
	if r := recover(); r != nil {
		lk.logger.WithField("panic", r).Errorf("%s handler panicked", what)
	}
}

// Join attempts to admit a new session into the Land. It runs on the actor
// loop and blocks the caller until the join handler decides.
func (lk *LandKeeper[S]) Join(ctx context.Context, sessionID SessionID, clientID ClientID, deviceID string, isGuest bool, metadata map[string]string, sessionPayload json.RawMessage) (JoinReply, *EngineError) {
	type result struct {
		reply JoinReply
		err   *EngineError
	}
	resultCh := make(chan result, 1)
	ok := lk.enqueue(func() {
		lc := lk.newContext(ctx, Context{
			ClientID: clientID, SessionID: sessionID, DeviceID: deviceID,
			IsGuest: isGuest, Metadata: metadata, TickID: lk.lastCommittedTickID,
		})
		if lk.def.OnJoin == nil {
			resultCh <- result{err: NewEngineError(JoinDenied, "no join handler configured")}
			return
		}
		var decision JoinDecision
		func() {
			defer lk.recoverHandlerPanic("join")
			decision = lk.def.OnJoin(lc, lk.state, sessionPayload)
		}()
		if !decision.Allowed {
			reason := decision.Reason
			if reason == nil {
				reason = NewEngineError(JoinDenied, "join denied")
			}
			resultCh <- result{err: reason}
			return
		}

		lk.mu.Lock()
		_, exists := lk.players[decision.PlayerID]
		if !exists && lk.def.MaxPlayers > 0 && len(lk.players) >= lk.def.MaxPlayers {
			lk.mu.Unlock()
			resultCh <- result{err: NewEngineError(JoinRoomFull, fmt.Sprintf("land %q is full (max %d players)", lk.id, lk.def.MaxPlayers))}
			return
		}

		lk.destroyMu.Lock()
		if lk.destroyTimer != nil {
			lk.destroyTimer.Stop()
			lk.destroyTimer = nil
		}
		lk.destroyMu.Unlock()

		sess, exists := lk.players[decision.PlayerID]
		if !exists {
			slot := decision.Slot
			if slot == NoSlot {
				slot = lk.allocSlot()
			}
			sess = &playerSession{
				ClientIDs: make(map[ClientID]bool),
				Services:  lc.Services,
				Slot:      slot,
				DeviceID:  deviceID,
				IsGuest:   isGuest,
				Metadata:  metadata,
			}
			lk.players[decision.PlayerID] = sess
		}
		sess.ClientIDs[clientID] = true
		sess.LastSession = sessionID
		lk.mu.Unlock()

		pctx := PolicyContext{Viewer: decision.PlayerID, LandID: lk.id, Slot: sess.Slot, Metadata: sess.Metadata}
		snapshot := ExtractSnapshot(lk.state, pctx)
		lk.engine.MarkFirstSyncReceived(decision.PlayerID, snapshot)

		if !exists && lk.metric != nil {
			lk.metric.PlayersActive.Inc()
		}

		resultCh <- result{reply: JoinReply{LandID: lk.id, PlayerID: decision.PlayerID, Slot: sess.Slot, Snapshot: snapshot}}
	})
	if !ok {
		return JoinReply{}, NewEngineError(JoinRoomNotFound, "land is shutting down")
	}
	select {
	case res := <-resultCh:
		return res.reply, res.err
	case <-ctx.Done():
		return JoinReply{}, NewEngineError(JoinDenied, "join canceled")
	}
}

func (lk *LandKeeper[S]) allocSlot() PlayerSlot {
	if n := len(lk.freeSlots); n > 0 {
		slot := lk.freeSlots[n-1]
		lk.freeSlots = lk.freeSlots[:n-1]
		return slot
	}
	slot := lk.nextSlot
	lk.nextSlot++
	return slot
}

// Leave removes one client connection for a player. When a player's last
// ClientID is removed they are dropped from the registry entirely, and
// their diff cache is cleared so a future rejoin gets a fresh firstSync.
func (lk *LandKeeper[S]) Leave(ctx context.Context, playerID PlayerID, clientID ClientID) {
	done := make(chan struct{})
	if !lk.enqueue(func() {
		defer close(done)
		lk.mu.Lock()
		sess, ok := lk.players[playerID]
		if !ok {
			lk.mu.Unlock()
			return
		}
		delete(sess.ClientIDs, clientID)
		empty := len(sess.ClientIDs) == 0
		if empty {
			delete(lk.players, playerID)
			lk.freeSlots = append(lk.freeSlots, sess.Slot)
		}
		remaining := len(lk.players)
		lk.mu.Unlock()

		if empty {
			lk.engine.ClearCacheForDisconnectedPlayer(playerID)
			if lk.metric != nil {
				lk.metric.PlayersActive.Dec()
			}
			if lk.def.OnLeave != nil {
				lc := lk.newContext(ctx, Context{PlayerID: playerID, ClientID: clientID, TickID: lk.lastCommittedTickID})
				func() {
					defer lk.recoverHandlerPanic("leave")
					lk.def.OnLeave(lc, lk.state, playerID)
				}()
			}
			if remaining == 0 && lk.onEmpty != nil {
				lk.scheduleDestroy()
			}
		}
	}) {
		return
	}
	<-done
}

func (lk *LandKeeper[S]) scheduleDestroy() {
	lk.destroyMu.Lock()
	defer lk.destroyMu.Unlock()
	if lk.destroyTimer != nil {
		lk.destroyTimer.Stop()
	}
	lk.destroyTimer = time.AfterFunc(lk.def.IdleTimeout, func() {
		lk.onEmpty(lk.id)
	})
}

// HandleAction routes an action to its registered handler and returns its
// result synchronously.
func (lk *LandKeeper[S]) HandleAction(ctx context.Context, playerID PlayerID, clientID ClientID, sessionID SessionID, actionType string, payload json.RawMessage) (any, *EngineError) {
	type result struct {
		value any
		err   *EngineError
	}
	resultCh := make(chan result, 1)
	ok := lk.enqueue(func() {
		handler, registered := lk.def.Actions[actionType]
		if !registered {
			if lk.metric != nil {
				lk.metric.ActionsTotal.WithLabelValues(actionType, "not_registered").Inc()
			}
			resultCh <- result{err: NewEngineError(ActionNotRegistered, fmt.Sprintf("action %q is not registered", actionType))}
			return
		}
		lc := lk.newContext(ctx, Context{
			PlayerID: playerID, ClientID: clientID, SessionID: sessionID,
			TickID: lk.lastCommittedTickID,
		})
		lk.fillSessionFields(lc, playerID)

		var value any
		var handlerErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					handlerErr = fmt.Errorf("panic: %v", r)
				}
			}()
			value, handlerErr = handler(lc, lk.state, payload)
		}()

		if handlerErr != nil {
			if lk.metric != nil {
				lk.metric.ActionsTotal.WithLabelValues(actionType, "error").Inc()
			}
			resultCh <- result{err: WrapEngineError(ActionHandlerError, "action handler failed", handlerErr)}
			return
		}
		if lk.metric != nil {
			lk.metric.ActionsTotal.WithLabelValues(actionType, "ok").Inc()
		}
		resultCh <- result{value: value}
	})
	if !ok {
		return nil, NewEngineError(ActionHandlerError, "land is shutting down")
	}
	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-ctx.Done():
		return nil, NewEngineError(ActionHandlerError, "action canceled")
	}
}

// HandleClientEvent routes a fire-and-forget event to its handler. Errors
// returned are only ever engine-level (unregistered); an event missing from
// a non-empty allow-list is dropped with a nil result, and a handler's own
// error is logged and swallowed, matching the spec's
// event-handling propagation policy.
func (lk *LandKeeper[S]) HandleClientEvent(ctx context.Context, playerID PlayerID, clientID ClientID, sessionID SessionID, eventType string, payload json.RawMessage) *EngineError {
	errCh := make(chan *EngineError, 1)
	ok := lk.enqueue(func() {
		if allow := lk.def.AllowedClientEventIdentifiers; len(allow) > 0 && !allow[eventType] {
			errCh <- nil // drop silently per engine contract
			return
		}
		handler, registered := lk.def.Events[eventType]
		if !registered {
			if lk.metric != nil {
				lk.metric.EventsTotal.WithLabelValues(eventType, "not_registered").Inc()
			}
			errCh <- NewEngineError(EventNotRegistered, fmt.Sprintf("event %q is not registered", eventType))
			return
		}
		lc := lk.newContext(ctx, Context{
			PlayerID: playerID, ClientID: clientID, SessionID: sessionID,
			TickID: lk.lastCommittedTickID,
		})
		lk.fillSessionFields(lc, playerID)

		func() {
			defer lk.recoverHandlerPanic("event:" + eventType)
			if err := handler(lc, lk.state, payload); err != nil {
				if lk.metric != nil {
					lk.metric.EventsTotal.WithLabelValues(eventType, "error").Inc()
				}
				lk.logger.WithError(err).WithField("event", eventType).Warn("event handler failed")
				return
			}
			if lk.metric != nil {
				lk.metric.EventsTotal.WithLabelValues(eventType, "ok").Inc()
			}
		}()
		errCh <- nil
	})
	if !ok {
		return NewEngineError(EventHandlerError, "land is shutting down")
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return NewEngineError(EventHandlerError, "event canceled")
	}
}

func (lk *LandKeeper[S]) fillSessionFields(lc *Context, playerID PlayerID) {
	lk.mu.RLock()
	sess, ok := lk.players[playerID]
	lk.mu.RUnlock()
	if !ok {
		return
	}
	lc.Slot = sess.Slot
	lc.DeviceID = sess.DeviceID
	lc.IsGuest = sess.IsGuest
	lc.Metadata = sess.Metadata
	lc.Services = sess.Services
}

// runTick executes one fixed-rate tick: the tick handler first, then a
// per-player diff fan-out, then event delivery and periodic persistence.
func (lk *LandKeeper[S]) runTick(ctx context.Context) {
	start := time.Now()
	tid := lk.nextTickID
	lk.nextTickID++

	if lk.def.OnTick != nil {
		tc := lk.newContext(ctx, Context{TickID: tid})
		func() {
			defer lk.recoverHandlerPanic("tick")
			lk.def.OnTick(tc, lk.state)
		}()
	}
	lk.lastCommittedTickID = tid

	lk.mu.RLock()
	snapshotOfPlayers := make(map[PlayerID]*playerSession, len(lk.players))
	for id, sess := range lk.players {
		snapshotOfPlayers[id] = sess
	}
	lk.mu.RUnlock()

	lk.recorder.SetTick(uint64(tid))
	for playerID, sess := range snapshotOfPlayers {
		pctx := PolicyContext{Viewer: playerID, LandID: lk.id, Slot: sess.Slot, Metadata: sess.Metadata}
		update := lk.engine.GenerateDiff(pctx)
		if update.Kind == UpdateNoChange {
			continue
		}
		if err := lk.recorder.RecordPatches(update); err != nil {
			lk.logger.WithError(err).Warn("failed to record replay patch")
		}
		if lk.metric != nil {
			lk.metric.DiffsSentTotal.WithLabelValues(string(lk.id)).Inc()
			if update.Kind == UpdateFirstSync {
				lk.metric.FirstSyncsTotal.WithLabelValues(string(lk.id)).Inc()
			}
		}
		if lk.hooks.OnUpdate != nil {
			for clientID := range sess.ClientIDs {
				lk.hooks.OnUpdate(playerID, clientID, update)
			}
		}
	}

	lk.state.ClearChanges()
	lk.deliverEvents(snapshotOfPlayers)

	if lk.metric != nil {
		lk.metric.TicksTotal.WithLabelValues(string(lk.id)).Inc()
		lk.metric.TickDuration.WithLabelValues(string(lk.id)).Observe(time.Since(start).Seconds())
	}

	if lk.persistFn != nil && lk.persistInterval > 0 && time.Since(lk.lastPersist) >= lk.persistInterval {
		lk.lastPersist = time.Now()
		if err := lk.persistFn(ctx, lk.id, lk.state); err != nil {
			lk.logger.WithError(err).Warn("periodic persist failed")
		}
	}
}

func (lk *LandKeeper[S]) deliverEvents(players map[PlayerID]*playerSession) {
	pending := lk.events.Drain()
	for _, pe := range pending {
		if err := lk.recorder.RecordEvent(pe.Event); err != nil {
			lk.logger.WithError(err).Warn("failed to record replay event")
		}
		if lk.hooks.OnEvent == nil {
			continue
		}
		switch pe.Target {
		case TargetAll:
			for playerID, sess := range players {
				for clientID := range sess.ClientIDs {
					lk.hooks.OnEvent(playerID, clientID, pe.Event)
				}
			}
		case TargetOne:
			if sess, ok := players[pe.To]; ok {
				for clientID := range sess.ClientIDs {
					lk.hooks.OnEvent(pe.To, clientID, pe.Event)
				}
			}
		case TargetExcept:
			for playerID, sess := range players {
				if playerID == pe.Except {
					continue
				}
				for clientID := range sess.ClientIDs {
					lk.hooks.OnEvent(playerID, clientID, pe.Event)
				}
			}
		case TargetMany:
			for _, playerID := range pe.ToMany {
				if sess, ok := players[playerID]; ok {
					for clientID := range sess.ClientIDs {
						lk.hooks.OnEvent(playerID, clientID, pe.Event)
					}
				}
			}
		}
	}
}

// PlayerCount returns the number of distinct players currently joined.
func (lk *LandKeeper[S]) PlayerCount() int {
	lk.mu.RLock()
	defer lk.mu.RUnlock()
	return len(lk.players)
}

// DrainReplayLog returns and clears the accumulated replay records. Intended
// to be polled by whatever owns durable storage for the replay feed.
func (lk *LandKeeper[S]) DrainReplayLog() []ReplayRecord {
	return lk.recorder.Drain()
}
