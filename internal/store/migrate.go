package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every embedded migration in name order. The scripts are
// idempotent so re-running on boot is safe.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(names)

	for i, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return i, fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return i, fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return len(names), nil
}
