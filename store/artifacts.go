package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketArtifacts holds uploaded pitch artifacts (PDF, audio, video).
const BucketArtifacts = "ARTIFACTS"

// Artifacts is blob storage for uploaded submission files.
type Artifacts interface {
	PutArtifact(ctx context.Context, name string, data []byte) error
	GetArtifact(ctx context.Context, name string) ([]byte, error)
}

// ObjectArtifacts stores artifacts in a JetStream object store bucket.
type ObjectArtifacts struct {
	bucket jetstream.ObjectStore
}

var _ Artifacts = (*ObjectArtifacts)(nil)

// NewObjectArtifacts opens the artifact bucket, creating it if missing.
func NewObjectArtifacts(ctx context.Context, js jetstream.JetStream) (*ObjectArtifacts, error) {
	bucket, err := js.ObjectStore(ctx, BucketArtifacts)
	if err != nil {
		bucket, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      BucketArtifacts,
			Description: "Dealflow uploaded pitch artifacts",
		})
		if err != nil {
			return nil, fmt.Errorf("create artifact bucket: %w", err)
		}
	}
	return &ObjectArtifacts{bucket: bucket}, nil
}

func (o *ObjectArtifacts) PutArtifact(ctx context.Context, name string, data []byte) error {
	if _, err := o.bucket.PutBytes(ctx, name, data); err != nil {
		return fmt.Errorf("put artifact %s: %w", name, err)
	}
	return nil
}

func (o *ObjectArtifacts) GetArtifact(ctx context.Context, name string) ([]byte, error) {
	data, err := o.bucket.GetBytes(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get artifact %s: %w", name, err)
	}
	return data, nil
}

// MemoryArtifacts is the in-memory Artifacts used in tests.
type MemoryArtifacts struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Artifacts = (*MemoryArtifacts)(nil)

func NewMemoryArtifacts() *MemoryArtifacts {
	return &MemoryArtifacts{blobs: make(map[string][]byte)}
}

func (m *MemoryArtifacts) PutArtifact(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryArtifacts) GetArtifact(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}
