// Package blob selects the blob backend the manifest archive writes to. It is
// the only package outside internal/infra/blob that imports the backends.
package blob

import (
	"context"
	"fmt"
	"os"

	"deepcopy/internal/blob/core"
	"deepcopy/internal/infra/blob/fs"
	"deepcopy/internal/infra/blob/memory"
	"deepcopy/internal/infra/blob/s3"
)

type (
	// Store aliases core.Store.
	Store = core.Store
	// Driver aliases core.Driver.
	Driver = core.Driver
)

// Open selects a Store implementation using environment variables.
//
//	DEEPCOPY_BLOB_DRIVER   fs|s3|memory; unset disables the archive (nil, nil)
//	DEEPCOPY_BLOB_FS_ROOT  directory root when driver=fs (default ./manifests)
//
// S3 variables are documented in internal/infra/blob/s3.
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("DEEPCOPY_BLOB_DRIVER")
	if driver == "" {
		return nil, nil
	}
	return OpenDriver(ctx, Driver(driver))
}

// OpenDriver constructs the named backend.
func OpenDriver(ctx context.Context, driver Driver) (Store, error) {
	switch driver {
	case core.DriverFilesystem:
		return fs.New(os.Getenv("DEEPCOPY_BLOB_FS_ROOT"))
	case core.DriverS3:
		return s3.OpenFromEnv(ctx)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
