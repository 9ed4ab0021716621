// Package persist keeps the snapshot in a primary and a backup slot of one
// storage backend. Saves write the backup first so that a crash between the
// two writes always leaves one complete copy.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"dokan/backend/internal/snapshot"
	"dokan/backend/internal/storage"
)

var ErrPersistence = errors.New("persistence failed")

// PersistenceError reports the slot whose final write attempt failed.
type PersistenceError struct {
	Slot string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("write %s slot: %v", e.Slot, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

type Source string

const (
	SourcePrimary  Source = "primary"
	SourceBackup   Source = "backup"
	SourceDefaults Source = "defaults"
)

type LoadReport struct {
	Source     Source
	PrimaryErr error
	BackupErr  error
	Healed     bool
}

// Recovered reports whether the loaded state did not come from a readable
// primary slot.
func (r LoadReport) Recovered() bool {
	return r.Source != SourcePrimary
}

type Options struct {
	Backend    storage.Backend
	PrimaryKey string
	BackupKey  string
	Retries    int
	Backoff    time.Duration
	Logger     logrus.FieldLogger
}

type Adapter struct {
	backend    storage.Backend
	primaryKey string
	backupKey  string
	retries    int
	backoff    time.Duration
	logger     logrus.FieldLogger

	mu     sync.Mutex
	digest [32]byte
}

func New(opts Options) *Adapter {
	if opts.PrimaryKey == "" {
		opts.PrimaryKey = "backoffice-primary"
	}
	if opts.BackupKey == "" {
		opts.BackupKey = "backoffice-backup"
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Adapter{
		backend:    opts.Backend,
		primaryKey: opts.PrimaryKey,
		backupKey:  opts.BackupKey,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		logger:     opts.Logger.WithField("module", "persist"),
	}
}

// Digest is the blake2b-256 sum used to detect foreign writes to the primary slot.
func Digest(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

func (a *Adapter) Keys() (primary string, backup string) {
	return a.primaryKey, a.backupKey
}

// Save encodes s once and writes it to the backup slot, then the primary slot.
func (a *Adapter) Save(ctx context.Context, s *snapshot.Snapshot) error {
	data, err := snapshot.Encode(s)
	if err != nil {
		return &PersistenceError{Slot: a.primaryKey, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := a.writeWithRetry(ctx, a.backupKey, data); err != nil {
		return &PersistenceError{Slot: a.backupKey, Err: err}
	}
	if err := a.writeWithRetry(ctx, a.primaryKey, data); err != nil {
		return &PersistenceError{Slot: a.primaryKey, Err: err}
	}
	a.remember(data)
	return nil
}

func (a *Adapter) writeWithRetry(ctx context.Context, key string, data []byte) error {
	var err error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			wait := a.backoff * time.Duration(1<<min(attempt-1, 6))
			a.logger.WithFields(logrus.Fields{
				"slot":    key,
				"attempt": attempt,
				"wait":    wait.String(),
			}).Warnf("retrying slot write: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err = a.backend.Write(ctx, key, data); err == nil {
			return nil
		}
	}
	return err
}

// Load returns the primary copy when it decodes, otherwise the backup copy
// (rewriting the primary from it), otherwise defaults. Backend failures other
// than a missing slot abort the load so unreadable data is never replaced.
func (a *Adapter) Load(ctx context.Context) (*snapshot.Snapshot, LoadReport, error) {
	var report LoadReport

	s, raw, err := a.readSlot(ctx, a.primaryKey)
	if err == nil {
		a.remember(raw)
		report.Source = SourcePrimary
		return s, report, nil
	}
	if !recoverable(err) {
		return nil, report, fmt.Errorf("read %s slot: %w", a.primaryKey, err)
	}
	report.PrimaryErr = err

	s, raw, err = a.readSlot(ctx, a.backupKey)
	if err == nil {
		report.Source = SourceBackup
		a.logger.WithFields(logrus.Fields{
			"slot":  a.primaryKey,
			"cause": report.PrimaryErr.Error(),
		}).Warn("primary snapshot unusable; recovered from backup")
		if herr := a.writeWithRetry(ctx, a.primaryKey, raw); herr != nil {
			a.logger.WithError(herr).Warn("could not heal primary slot from backup")
		} else {
			report.Healed = true
			a.remember(raw)
		}
		return s, report, nil
	}
	if !recoverable(err) {
		return nil, report, fmt.Errorf("read %s slot: %w", a.backupKey, err)
	}
	report.BackupErr = err
	report.Source = SourceDefaults

	if !errors.Is(report.PrimaryErr, storage.ErrNotFound) || !errors.Is(report.BackupErr, storage.ErrNotFound) {
		a.logger.WithFields(logrus.Fields{
			"primary": report.PrimaryErr.Error(),
			"backup":  report.BackupErr.Error(),
		}).Warn("no usable snapshot copy; starting from defaults")
	}
	return snapshot.Default(), report, nil
}

func (a *Adapter) readSlot(ctx context.Context, key string) (*snapshot.Snapshot, []byte, error) {
	raw, err := a.backend.Read(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	s, err := snapshot.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return s, raw, nil
}

func recoverable(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, snapshot.ErrMalformed)
}

func (a *Adapter) remember(data []byte) {
	sum := Digest(data)
	a.mu.Lock()
	a.digest = sum
	a.mu.Unlock()
}

// Changed reports whether the primary slot no longer holds the bytes this
// adapter last loaded or wrote.
func (a *Adapter) Changed(ctx context.Context) (bool, error) {
	raw, err := a.backend.Read(ctx, a.primaryKey)
	if errors.Is(err, storage.ErrNotFound) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.digest != [32]byte{}, nil
	}
	if err != nil {
		return false, err
	}
	sum := Digest(raw)
	a.mu.Lock()
	defer a.mu.Unlock()
	return sum != a.digest, nil
}
