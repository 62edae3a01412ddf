package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"painelpib/internal/loader"
)

var (
	// ErrReloadInProgress is returned when a load is requested while another one runs.
	ErrReloadInProgress = errors.New("reload already in progress")
	// ErrNotLoaded is returned by Snapshot before the first successful load.
	ErrNotLoaded = errors.New("dataset not loaded")
)

// State is the lifecycle phase of a session.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateReloading State = "reloading"
	StateReady     State = "ready"
	StateFailed    State = "failed"
)

// Status messages shown to the user.
const (
	MsgLoading     = "Carregando…"
	MsgReloading   = "Recarregando…"
	MsgLoadFailed  = "Erro ao carregar dados."
	MsgReloadError = "Erro ao recarregar."
	MsgNoData      = "Sem dados."
)

// Status is the user-visible session state. Err holds the last load failure, if any.
type Status struct {
	State   State     `json:"state"`
	Message string    `json:"message"`
	Err     string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Observer is told about every finished load attempt.
type Observer interface {
	LoadFinished(err error, elapsed time.Duration, rows loader.RowStats)
}

// Options configures a session.
type Options struct {
	Load              loader.Options
	PreferredVariable string
	Timeout           time.Duration
	Observer          Observer
}

// Session is the explicit dashboard context. Readers take the current snapshot without locking; only
// one load runs at a time and a failed load leaves the published snapshot in place.
type Session struct {
	fetcher loader.Fetcher
	opts    Options
	log     zerolog.Logger

	snap    atomic.Pointer[Snapshot]
	loading sync.Mutex

	mu     sync.RWMutex
	status Status
}

// NewSession creates an unloaded session.
func NewSession(f loader.Fetcher, opts Options, log zerolog.Logger) *Session {
	return &Session{
		fetcher: f,
		opts:    opts,
		log:     log,
		status:  Status{State: StateIdle, At: time.Now()},
	}
}

// Load fetches both sources and rebuilds every derived structure, then publishes the result in one
// step. It returns ErrReloadInProgress instead of waiting when another load is running.
func (s *Session) Load(ctx context.Context) error {
	if !s.loading.TryLock() {
		return ErrReloadInProgress
	}
	defer s.loading.Unlock()

	reload := s.snap.Load() != nil
	if reload {
		s.setStatus(StateReloading, MsgReloading, nil)
	} else {
		s.setStatus(StateLoading, MsgLoading, nil)
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	snap, rows, err := s.build(ctx)
	if s.opts.Observer != nil {
		s.opts.Observer.LoadFinished(err, time.Since(start), rows)
	}
	if err != nil {
		msg := MsgLoadFailed
		if reload {
			msg = MsgReloadError
		}
		s.setStatus(StateFailed, msg, err)
		s.log.Error().Err(err).Bool("reload", reload).Msg("❌ load failed")
		return err
	}

	s.snap.Store(snap)
	s.setStatus(StateReady, "", nil)
	s.log.Info().
		Str("series", snap.Series).
		Int("variables", len(snap.Variables)).
		Int("entities", snap.Index.Len()).
		Int("records", len(snap.Records)).
		Int("overwrites", snap.Cube.Overwrites()).
		Dur("elapsed", time.Since(start)).
		Msg("🧊 cube ready")
	return nil
}

func (s *Session) build(ctx context.Context) (*Snapshot, loader.RowStats, error) {
	ds, err := loader.Load(ctx, s.fetcher, s.opts.Load, s.log)
	if err != nil {
		return nil, loader.RowStats{}, err
	}
	snap, err := NewSnapshot(ds, s.opts.PreferredVariable)
	if err != nil {
		return nil, ds.Stats, err
	}
	return snap, ds.Stats, nil
}

// Snapshot returns the published dataset.
func (s *Session) Snapshot() (*Snapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) setStatus(state State, msg string, err error) {
	st := Status{State: state, Message: msg, At: time.Now()}
	if err != nil {
		st.Err = err.Error()
	}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}
