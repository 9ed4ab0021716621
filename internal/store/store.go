// Package store owns the back-office snapshot. Every mutator runs as one
// transaction: clone the committed snapshot, apply the change, persist both
// slots, then swap the clone in. A failed step leaves the committed state
// untouched.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dokan/backend/internal/events"
	"dokan/backend/internal/metrics"
	"dokan/backend/internal/persist"
	"dokan/backend/internal/snapshot"
	"dokan/backend/internal/xid"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrPrecondition = errors.New("precondition failed")
	ErrIntegrity    = errors.New("referential integrity violation")
	ErrInvalid      = errors.New("invalid input")
)

// IntegrityError names the record that blocks a delete.
type IntegrityError struct {
	Family       Family
	ID           string
	ReferencedBy Family
	ReferenceID  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("cannot delete %s %s: referenced by %s %s", e.Family, e.ID, e.ReferencedBy, e.ReferenceID)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

type Options struct {
	// Adapter persists committed snapshots. Without one the store is
	// memory-only.
	Adapter *persist.Adapter
	// Guard is acquired around every transaction when several processes
	// share one backend. Enabling it also reloads the snapshot whenever the
	// primary slot was written by someone else.
	Guard     persist.Guard
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    logrus.FieldLogger
	Tracer    trace.Tracer
	// Location is the business time zone used for document-number dates.
	Location *time.Location
	Now      func() time.Time
	NewID    func(prefix string) string
}

type Store struct {
	mu    sync.RWMutex
	state *snapshot.Snapshot

	adapter   *persist.Adapter
	guard     persist.Guard
	guarded   bool
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger
	tracer    trace.Tracer
	loc       *time.Location
	now       func() time.Time
	newID     func(prefix string) string
	validate  *validator.Validate
}

// New returns a store over the default snapshot.
func New(opts Options) *Store {
	st := &Store{
		state:     snapshot.Default(),
		adapter:   opts.Adapter,
		guard:     opts.Guard,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		loc:       opts.Location,
		now:       opts.Now,
		newID:     opts.NewID,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	if st.guard == nil {
		st.guard = persist.NoopGuard{}
	} else if _, noop := st.guard.(persist.NoopGuard); !noop {
		st.guarded = true
	}
	if st.publisher == nil {
		st.publisher = events.Nop{}
	}
	if st.logger == nil {
		st.logger = logrus.StandardLogger()
	}
	st.logger = st.logger.WithField("module", "store")
	if st.tracer == nil {
		st.tracer = otel.Tracer("dokan/backend/internal/store")
	}
	if st.loc == nil {
		st.loc = time.Local
	}
	if st.now == nil {
		st.now = time.Now
	}
	if st.newID == nil {
		st.newID = xid.New
	}
	return st
}

// Open builds a store and loads its snapshot through opts.Adapter.
func Open(ctx context.Context, opts Options) (*Store, persist.LoadReport, error) {
	st := New(opts)
	if st.adapter == nil {
		return st, persist.LoadReport{Source: persist.SourceDefaults}, nil
	}
	report, err := st.Reload(ctx)
	if err != nil {
		return nil, report, err
	}
	return st, report, nil
}

// Reload replaces the committed snapshot with the stored one.
func (st *Store) Reload(ctx context.Context) (persist.LoadReport, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.reloadLocked(ctx)
}

func (st *Store) reloadLocked(ctx context.Context) (persist.LoadReport, error) {
	if st.adapter == nil {
		return persist.LoadReport{Source: persist.SourceDefaults}, nil
	}
	s, report, err := st.adapter.Load(ctx)
	if err != nil {
		return report, err
	}
	st.metrics.ObserveLoad(string(report.Source))
	st.state = s
	st.metrics.SetEntityCounts(counts(s))
	return report, nil
}

// tx is the working copy handed to a mutator.
type tx struct {
	st     *Store
	s      *snapshot.Snapshot
	now    time.Time
	events []events.Event
}

func (t *tx) emit(typ events.Type, family Family, id string) {
	t.events = append(t.events, events.Event{Type: typ, Entity: string(family), ID: id, At: t.now})
}

func (st *Store) mutate(ctx context.Context, op string, fn func(t *tx) error) (err error) {
	ctx, span := st.tracer.Start(ctx, "store."+op, trace.WithAttributes(attribute.String("store.op", op)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		st.metrics.ObserveTransaction(op, err)
	}()

	release, err := st.guard.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			st.logger.WithError(rerr).Warn("release writer lock")
		}
	}()

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.guarded && st.adapter != nil {
		changed, err := st.adapter.Changed(ctx)
		if err != nil {
			return fmt.Errorf("check stored snapshot: %w", err)
		}
		if changed {
			st.logger.WithField("op", op).Info("snapshot changed by another writer; reloading")
			if _, err := st.reloadLocked(ctx); err != nil {
				return err
			}
		}
	}

	t := &tx{st: st, s: st.state.Clone(), now: st.now()}
	if err := fn(t); err != nil {
		return err
	}

	t.s.Meta.Revision = st.state.Meta.Revision + 1
	savedAt := t.now.UTC()
	t.s.Meta.SavedAt = &savedAt
	if st.adapter != nil {
		started := time.Now()
		if err := st.adapter.Save(ctx, t.s); err != nil {
			st.logger.WithFields(logrus.Fields{"op": op}).WithError(err).Error("snapshot not persisted; transaction rolled back")
			return err
		}
		st.metrics.ObserveSave(time.Since(started))
	}
	st.state = t.s
	st.metrics.SetEntityCounts(counts(t.s))

	if len(t.events) > 0 {
		for i := range t.events {
			t.events[i].Revision = t.s.Meta.Revision
		}
		if perr := st.publisher.Publish(ctx, t.events); perr != nil {
			st.logger.WithFields(logrus.Fields{"op": op, "events": len(t.events)}).WithError(perr).Warn("publish change events")
		}
	}
	return nil
}

// view runs fn against the committed snapshot. fn must not retain or modify it.
func (st *Store) view(fn func(s *snapshot.Snapshot)) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(st.state)
}

// Snapshot returns a deep copy of the committed state.
func (st *Store) Snapshot() *snapshot.Snapshot {
	var out *snapshot.Snapshot
	st.view(func(s *snapshot.Snapshot) { out = s.Clone() })
	return out
}

// Replace commits s as the new state, for example when importing an export.
func (st *Store) Replace(ctx context.Context, s *snapshot.Snapshot) error {
	return st.mutate(ctx, "Replace", func(t *tx) error {
		next := s.Clone()
		next.Meta = t.s.Meta
		next.RederiveChallans()
		t.s = next
		return nil
	})
}

// Counts returns the number of records per collection.
func (st *Store) Counts() map[string]int {
	var out map[string]int
	st.view(func(s *snapshot.Snapshot) { out = counts(s) })
	return out
}

func (st *Store) Close() error {
	return st.publisher.Close()
}

func (st *Store) check(v any) error {
	if err := st.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
