package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrDisposed       = errors.New("progress: state disposed")
	ErrNotInitialized = errors.New("progress: state not initialized")
)

// State holds one learner's latest snapshot between requests.
// All methods are safe for concurrent use; operations on one State run one at a time.
type State struct {
	svc *Service

	mu       sync.Mutex
	userID   uuid.UUID
	snap     Snapshot
	ready    bool
	disposed bool
	lastUsed time.Time
}

func NewState(svc *Service) *State {
	return &State{svc: svc, lastUsed: svc.now()}
}

// Init binds the state to userID and performs the first load.
func (st *State) Init(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	if userID == uuid.Nil {
		return Snapshot{}, ErrNoUser
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.disposed {
		return Snapshot{}, ErrDisposed
	}
	st.userID = userID
	st.snap = st.svc.LoadFrom(ctx, userID, st.snap)
	st.ready = true
	st.touch()
	return st.snap, nil
}

// Snapshot returns the cached snapshot. A snapshot loaded on an earlier calendar day is reloaded
// first, so weekly activity and streaks follow the date.
func (st *State) Snapshot(ctx context.Context) (Snapshot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.usable(); err != nil {
		return Snapshot{}, err
	}
	if st.stale() {
		st.snap = st.svc.LoadFrom(ctx, st.userID, st.snap)
	}
	st.touch()
	return st.snap, nil
}

// Refresh reloads every part of the snapshot; parts that fail keep their previous value.
func (st *State) Refresh(ctx context.Context) (Snapshot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.usable(); err != nil {
		return Snapshot{}, err
	}
	st.snap = st.svc.LoadFrom(ctx, st.userID, st.snap)
	st.touch()
	return st.snap, nil
}

// CompleteTopic records a completion and reloads. On failure the previous snapshot is returned
// unchanged together with the error.
func (st *State) CompleteTopic(ctx context.Context, in CompleteInput) (Snapshot, Outcome, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.usable(); err != nil {
		return Snapshot{}, Outcome{}, err
	}
	st.touch()
	out, err := st.svc.complete(ctx, st.userID, in)
	if err != nil {
		return st.snap, Outcome{}, err
	}
	st.snap = st.svc.LoadFrom(ctx, st.userID, st.snap)
	return st.snap, out, nil
}

// Dispose releases the snapshot. Later calls return ErrDisposed.
func (st *State) Dispose() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.disposed = true
	st.ready = false
	st.snap = Snapshot{}
}

func (st *State) idleSince() time.Time {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastUsed
}

func (st *State) stale() bool {
	return DateKey(st.snap.LoadedAt.In(st.svc.loc)) != DateKey(st.svc.clock())
}

func (st *State) usable() error {
	if st.disposed {
		return ErrDisposed
	}
	if !st.ready {
		return ErrNotInitialized
	}
	return nil
}

func (st *State) touch() {
	st.lastUsed = st.svc.now()
}

// Registry keeps one State per learner for the HTTP layer.
type Registry struct {
	svc *Service

	mu     sync.Mutex
	states map[uuid.UUID]*State
}

func NewRegistry(svc *Service) *Registry {
	return &Registry{svc: svc, states: make(map[uuid.UUID]*State)}
}

// Get returns the learner's State, creating and initializing it on first use.
func (r *Registry) Get(ctx context.Context, userID uuid.UUID) (*State, error) {
	if userID == uuid.Nil {
		return nil, ErrNoUser
	}
	r.mu.Lock()
	st, ok := r.states[userID]
	if !ok {
		st = NewState(r.svc)
		r.states[userID] = st
	}
	r.mu.Unlock()

	if _, err := st.Snapshot(ctx); errors.Is(err, ErrNotInitialized) {
		if _, err := st.Init(ctx, userID); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return st, nil
}

// Dispose drops and disposes the learner's State, if any.
func (r *Registry) Dispose(userID uuid.UUID) {
	r.mu.Lock()
	st, ok := r.states[userID]
	delete(r.states, userID)
	r.mu.Unlock()
	if ok {
		st.Dispose()
	}
}

// EvictIdle disposes states unused for longer than maxIdle and returns how many were dropped.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.svc.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*State
	for id, st := range r.states {
		if st.idleSince().Before(cutoff) {
			stale = append(stale, st)
			delete(r.states, id)
		}
	}
	r.mu.Unlock()

	for _, st := range stale {
		st.Dispose()
	}
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Close disposes every state.
func (r *Registry) Close() {
	r.mu.Lock()
	states := r.states
	r.states = make(map[uuid.UUID]*State)
	r.mu.Unlock()
	for _, st := range states {
		st.Dispose()
	}
}
