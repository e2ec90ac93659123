package rules

import (
	"context"
	"errors"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/gcp"
	"github.com/yungbote/contentsafety/internal/platform/logger"
)

// ObjectSource reads the rule document from a GCS object. The storage client
// is created on first use; a failed creation is retried on the next load.
type ObjectSource struct {
	ref gcp.ObjectRef
	log *logger.Logger

	mu        sync.Mutex
	client    *storage.Client
	newClient func(ctx context.Context) (*storage.Client, error)
}

func NewObjectSource(location string, log *logger.Logger) (*ObjectSource, error) {
	ref, err := gcp.ParseObjectURL(location)
	if err != nil {
		return nil, err
	}
	return &ObjectSource{
		ref: ref,
		log: logger.OrNop(log).With("service", "ObjectRuleSource"),
		newClient: func(ctx context.Context) (*storage.Client, error) {
			cfg, err := gcp.ResolveObjectStorageConfigFromEnv()
			if err != nil {
				return nil, err
			}
			return gcp.NewStorageClient(ctx, cfg)
		},
	}, nil
}

func (s *ObjectSource) Name() string { return s.ref.String() }
func (s *ObjectSource) Kind() string { return "gcs" }

func (s *ObjectSource) TryLoad(ctx context.Context) ([]safety.BannedPhraseRule, error) {
	client, err := s.storageClient(ctx)
	if err != nil {
		return nil, err
	}
	data, err := gcp.ReadObject(ctx, client, s.ref, maxPayloadBytes)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	rules, skipped, err := decodePayload(data, formatForPath(s.ref.Object))
	if skipped > 0 {
		s.log.Warn("skipped malformed rule entries", "object", s.ref.String(), "skipped", skipped)
	}
	return rules, err
}

func (s *ObjectSource) storageClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	c, err := s.newClient(ctx)
	if err != nil {
		return nil, err
	}
	s.client = c
	return c, nil
}

func (s *ObjectSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
