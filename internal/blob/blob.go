// Package blob is the single entry point to snapshot storage. Callers depend
// on Store and never import the infra backends directly.
package blob

import (
	"context"
	"fmt"

	"stockroom/internal/blob/core"
	fsblob "stockroom/internal/infra/blob/fs"
	memblob "stockroom/internal/infra/blob/memory"
	s3blob "stockroom/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config carries the bucket connection settings.
	S3Config = s3blob.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrExists   = core.ErrExists
	ErrNotFound = core.ErrNotFound
)

// Config selects and configures a backend. Root applies to the fs driver and
// S3 to the s3 driver.
type Config struct {
	Driver Driver
	Root   string
	S3     S3Config
}

// NewFilesystem returns a directory backed store; an empty root means ./blobdata.
func NewFilesystem(root string) (Store, error) {
	s, err := fsblob.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns a process-local store.
func NewMemory() Store { return memblob.New() }

// NewS3 returns a bucket backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	s, err := s3blob.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewS3Mock returns an s3 store talking to an in-memory fake endpoint.
func NewS3Mock() Store { return s3blob.NewMockForTests() }

// Open builds the store named by cfg.Driver, defaulting to fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
