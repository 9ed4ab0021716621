// Package events publishes change notifications after a store transaction
// has been persisted.
package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Type string

const (
	Created Type = "created"
	Updated Type = "updated"
	Deleted Type = "deleted"
)

type Event struct {
	Type     Type      `json:"type"`
	Entity   string    `json:"entity"`
	ID       string    `json:"id"`
	Revision int64     `json:"revision"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, batch []Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, []Event) error { return nil }
func (Nop) Close() error                           { return nil }

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger logrus.FieldLogger
}

func NewLogPublisher(logger logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{logger: logger.WithField("module", "events")}
}

func (p *LogPublisher) Publish(_ context.Context, batch []Event) error {
	for _, ev := range batch {
		p.logger.WithFields(logrus.Fields{
			"type":     ev.Type,
			"entity":   ev.Entity,
			"id":       ev.ID,
			"revision": ev.Revision,
		}).Info("change")
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
