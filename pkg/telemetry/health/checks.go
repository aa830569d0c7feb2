package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/atrium/pkg/queue"
	"mercator-hq/atrium/pkg/resource"
)

// DatabaseCheck pings db.
func DatabaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
		return nil
	}
}

// QueueCheck reads the backend statistics. It fails when the backend is
// unreachable.
func QueueCheck(backend queue.Backend) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := backend.Stats(ctx); err != nil {
			return fmt.Errorf("queue unavailable: %w", err)
		}
		return nil
	}
}

// RegistryCheck fails while no resource is registered.
func RegistryCheck(registry *resource.Registry) CheckFunc {
	return func(ctx context.Context) error {
		if registry.Len() == 0 {
			return errors.New("no resources registered")
		}
		return nil
	}
}

// WritableDirCheck verifies that files can be created in dir.
func WritableDirCheck(dir string) CheckFunc {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return fmt.Errorf("directory %s is not writable: %w", filepath.Base(dir), err)
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}
}
