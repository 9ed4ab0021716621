package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores each slot as one object in a Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS uses Application Default Credentials unless credJSON is provided.
func NewGCS(ctx context.Context, bucket string, credJSON string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required for the gcs driver")
	}
	var opts []option.ClientOption
	if credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Driver() Driver { return DriverGCS }

func (g *GCS) Read(ctx context.Context, key string) ([]byte, error) {
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}

func (g *GCS) Write(ctx context.Context, key string, data []byte) error {
	wc := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = "application/json"
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

func (g *GCS) Close() error {
	return g.client.Close()
}
