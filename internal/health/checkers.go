package health

import (
	"context"
	"fmt"
	"os"

	"github.com/lexivox/lexivox/internal/vocab"
)

// FileChecker reports readiness of a required file on disk, such as the
// whisper model weights.
func FileChecker(name, path string) Checker {
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %q: %w", path, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%q is a directory, want a file", path)
			}
			return nil
		},
	}
}

// VocabularyChecker reports readiness of the vocabulary store. An empty
// table is healthy; a nil snapshot is not.
func VocabularyChecker(store *vocab.Store) Checker {
	return Checker{
		Name: "vocabulary",
		Check: func(ctx context.Context) error {
			if store == nil || store.Snapshot() == nil {
				return fmt.Errorf("vocabulary store not initialised")
			}
			return nil
		},
	}
}

// Pinger is satisfied by *pgxpool.Pool and other connection pools.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker reports readiness of the job store's database connection.
func DatabaseChecker(db Pinger) Checker {
	return Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			if db == nil {
				return fmt.Errorf("database not configured")
			}
			return db.Ping(ctx)
		},
	}
}
