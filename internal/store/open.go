package store

import (
	"context"
	"fmt"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendS3     = "s3"
)

type OpenOptions struct {
	Backend     string
	DatabaseURL string
	BoltPath    string
	S3          S3Config
}

// Open returns the KV selected by opts.Backend.
func Open(ctx context.Context, opts OpenOptions) (KV, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		return NewSQLiteStore(opts.DatabaseURL)
	case BackendBolt:
		return NewBoltStore(opts.BoltPath)
	case BackendS3:
		if opts.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 backend requires a bucket")
		}
		s, err := NewS3Store(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
}
