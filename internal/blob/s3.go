package blob

import (
	"context"

	infraS3 "vnastore/internal/infra/blob/s3"
)

// S3Config configures the S3 backend.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	st, err := infraS3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// NewMockS3ForTests returns an S3-backed Store talking to an in-memory fake endpoint, for
// tests in other packages.
func NewMockS3ForTests(pageSize int) Store { return infraS3.NewMockForTests(pageSize) }
