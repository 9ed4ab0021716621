package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher uses Application Default Credentials unless credJSON is
// provided. The topic is created when it does not exist yet.
func NewPubSubPublisher(ctx context.Context, projectID string, topicID string, credJSON string) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, errors.New("PUBSUB_PROJECT and PUBSUB_TOPIC are required for the pubsub publisher")
	}
	var opts []option.ClientOption
	if credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if !ok {
		if topic, err = client.CreateTopic(ctx, topicID); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("create topic %q: %w", topicID, err)
		}
	}
	return &PubSubPublisher{client: client, topic: topic}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, batch []Event) error {
	results := make([]*pubsub.PublishResult, 0, len(batch))
	for _, ev := range batch {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		results = append(results, p.topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"type":   string(ev.Type),
				"entity": ev.Entity,
			},
		}))
	}
	var errs []error
	for _, res := range results {
		if _, err := res.Get(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
