package storage

import (
	"context"
	"fmt"
)

// Config selects and configures a blob backend.
type Config struct {
	Driver string
	FSRoot string
	S3     S3Config
}

// OpenBlob builds the backend named by cfg.Driver (default fs).
func OpenBlob(ctx context.Context, cfg Config) (Blob, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
