package blob

import (
	"context"
	"fmt"
)

// Config selects and configures the export target.
type Config struct {
	Driver Driver   `toml:"driver"`
	FSRoot string   `toml:"fs_root"`
	S3     S3Config `toml:"s3"`
}

// Open constructs the Store named by cfg.Driver; an empty driver selects the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
