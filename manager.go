package landsync

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Manager owns a registry of concurrently running Lands of one kind (one
// LandDefinition[S]) and coordinates creating, looking up, and destroying
// them. Work inside a single Land stays serialized through its LandKeeper;
// work across Lands runs concurrently via errgroup.
type Manager[S StateNode] struct {
	def    *LandDefinition[S]
	logger *logrus.Entry
	metric *Metrics
	hooks  DeliveryHooks[S]

	persistFn       func(ctx context.Context, landID LandID, state S) error
	persistInterval time.Duration

	mu    sync.RWMutex
	lands map[LandID]*LandKeeper[S]

	schemas *SchemaRegistry

	rootCtx    context.Context
	cancelRoot context.CancelFunc
}

// NewManager creates a Manager bound to one LandDefinition. logger and
// metric may be nil.
func NewManager[S StateNode](def *LandDefinition[S], logger *logrus.Entry, metric *Metrics, hooks DeliveryHooks[S]) *Manager[S] {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	schemas := NewSchemaRegistry()
	registerSchemaTree(schemas, def.NewState().Schema())
	return &Manager[S]{
		def:        def,
		logger:     logger,
		metric:     metric,
		hooks:      hooks,
		lands:      make(map[LandID]*LandKeeper[S]),
		schemas:    schemas,
		rootCtx:    ctx,
		cancelRoot: cancel,
	}
}

// LookupSchema returns a schema registered under id - the Land's root
// schema or any schema nested under it through a struct field - letting
// admin tooling resolve field layout for a wire message without walking
// the state tree itself.
func (m *Manager[S]) LookupSchema(id uint16) (*Schema, bool) {
	s := m.schemas.Get(id)
	return s, s != nil
}

// LookupSchemaByName is LookupSchema keyed by schema name instead of ID.
func (m *Manager[S]) LookupSchemaByName(name string) (*Schema, bool) {
	s := m.schemas.GetByName(name)
	return s, s != nil
}

// SetPersistFn configures the persistence hook applied to every Land created
// from this point forward.
func (m *Manager[S]) SetPersistFn(fn func(ctx context.Context, landID LandID, state S) error, interval time.Duration) {
	m.persistFn = fn
	m.persistInterval = interval
}

// CreateLand registers and starts a new Land under id. Returns
// ErrLandAlreadyExists if id is already in use.
func (m *Manager[S]) CreateLand(id LandID) (*LandKeeper[S], error) {
	m.mu.Lock()
	if _, exists := m.lands[id]; exists {
		m.mu.Unlock()
		return nil, ErrLandAlreadyExists
	}
	keeper := NewLandKeeper[S](id, m.def, m.logger, m.metric, m.hooks)
	if m.persistFn != nil {
		keeper.SetPersistFn(m.persistFn, m.persistInterval)
	}
	keeper.SetOnEmpty(m.destroyLand)
	m.lands[id] = keeper
	m.mu.Unlock()

	keeper.Run(m.rootCtx)
	if m.metric != nil {
		m.metric.LandsActive.Inc()
	}
	m.logger.WithField("land", string(id)).Info("land created")
	return keeper, nil
}

// GetLand returns the running LandKeeper for id, or ErrLandNotFound.
func (m *Manager[S]) GetLand(id LandID) (*LandKeeper[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keeper, ok := m.lands[id]
	if !ok {
		return nil, ErrLandNotFound
	}
	return keeper, nil
}

// GetOrCreateLand returns the existing Land for id, creating one if absent.
func (m *Manager[S]) GetOrCreateLand(id LandID) (*LandKeeper[S], error) {
	if keeper, err := m.GetLand(id); err == nil {
		return keeper, nil
	}
	return m.CreateLand(id)
}

// Lands returns a snapshot of currently registered LandIDs.
func (m *Manager[S]) Lands() []LandID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]LandID, 0, len(m.lands))
	for id := range m.lands {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of currently registered Lands.
func (m *Manager[S]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lands)
}

// destroyLand is the onEmpty callback a LandKeeper invokes once its idle
// timeout elapses with no players joined.
func (m *Manager[S]) destroyLand(id LandID) {
	m.mu.Lock()
	keeper, ok := m.lands[id]
	if ok {
		delete(m.lands, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	keeper.Stop()
	if m.metric != nil {
		m.metric.LandsActive.Dec()
		m.metric.LandsDestroyed.Inc()
	}
	m.logger.WithField("land", string(id)).Info("land destroyed")
}

// DestroyLand forcibly stops and removes a Land regardless of its player
// count, used for administrative teardown.
func (m *Manager[S]) DestroyLand(id LandID) error {
	m.mu.Lock()
	keeper, ok := m.lands[id]
	if ok {
		delete(m.lands, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrLandNotFound
	}
	keeper.Stop()
	if m.metric != nil {
		m.metric.LandsActive.Dec()
		m.metric.LandsDestroyed.Inc()
	}
	m.logger.WithField("land", string(id)).Info("land destroyed")
	return nil
}

// Shutdown stops every running Land concurrently and waits for all of them
// to finish their shutdown handlers, fanning the per-Land stop out across an
// errgroup since each Stop blocks on that Land's own actor loop exiting.
func (m *Manager[S]) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	keepers := make([]*LandKeeper[S], 0, len(m.lands))
	for id, keeper := range m.lands {
		keepers = append(keepers, keeper)
		delete(m.lands, id)
	}
	m.mu.Unlock()

	m.cancelRoot()

	g, _ := errgroup.WithContext(ctx)
	for _, keeper := range keepers {
		keeper := keeper
		g.Go(func() error {
			keeper.Stop()
			return nil
		})
	}
	err := g.Wait()
	if m.metric != nil {
		m.metric.LandsActive.Set(0)
	}
	return err
}

// BroadcastAction delivers the same action to every currently registered
// Land concurrently, returning the errors of the Lands whose handler failed,
// keyed by LandID; action results are discarded.
func (m *Manager[S]) BroadcastAction(ctx context.Context, playerID PlayerID, clientID ClientID, sessionID SessionID, actionType string, payload []byte) map[LandID]error {
	m.mu.RLock()
	keepers := make(map[LandID]*LandKeeper[S], len(m.lands))
	for id, keeper := range m.lands {
		keepers[id] = keeper
	}
	m.mu.RUnlock()

	var mu sync.Mutex
	results := make(map[LandID]error, len(keepers))
	g, gctx := errgroup.WithContext(ctx)
	for id, keeper := range keepers {
		id, keeper := id, keeper
		g.Go(func() error {
			_, engineErr := keeper.HandleAction(gctx, playerID, clientID, sessionID, actionType, payload)
			mu.Lock()
			if engineErr != nil {
				results[id] = engineErr
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
