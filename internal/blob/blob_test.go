package blob

import (
	"context"
	"path/filepath"
	"testing"

	"deepcopy/internal/blob/core"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	t.Setenv("DEEPCOPY_BLOB_DRIVER", "")
	store, err := Open(ctx)
	if err != nil || store != nil {
		t.Fatalf("expected archive disabled, got %v %v", store, err)
	}

	t.Setenv("DEEPCOPY_BLOB_DRIVER", "memory")
	store, err = Open(ctx)
	if err != nil || store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory store, got %v %v", store, err)
	}

	t.Setenv("DEEPCOPY_BLOB_DRIVER", "fs")
	t.Setenv("DEEPCOPY_BLOB_FS_ROOT", filepath.Join(t.TempDir(), "archive"))
	store, err = Open(ctx)
	if err != nil || store.Driver() != core.DriverFilesystem {
		t.Fatalf("expected fs store, got %v %v", store, err)
	}

	t.Setenv("DEEPCOPY_BLOB_DRIVER", "s3")
	t.Setenv("DEEPCOPY_BLOB_S3_BUCKET", "")
	if _, err := Open(ctx); err == nil {
		t.Fatalf("expected s3 bucket error")
	}

	t.Setenv("DEEPCOPY_BLOB_DRIVER", "tape")
	if _, err := Open(ctx); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
