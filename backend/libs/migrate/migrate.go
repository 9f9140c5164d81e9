package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Source describes an embedded migration set.
type Source struct {
	FS  fs.FS
	Dir string
}

// Run executes a goose command (up, down, status, version, redo, reset) against db.
func Run(ctx context.Context, db *sql.DB, src Source, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("migrate: db is required")
	}
	if src.FS == nil || src.Dir == "" {
		return fmt.Errorf("migrate: migration source is required")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(src.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, src.Dir, args...); err != nil {
		return fmt.Errorf("migrate: goose %s: %w", command, err)
	}
	return nil
}

// UpOnStart applies pending migrations when enabled.
func UpOnStart(ctx context.Context, enabled bool, db *sql.DB, src Source, logger *zap.Logger) error {
	if !enabled {
		return nil
	}
	logger.Info("running migrations", zap.String("dir", src.Dir))
	if err := Run(ctx, db, src, "up"); err != nil {
		return err
	}
	logger.Info("migrations completed")
	return nil
}

// Validate checks file names and goose annotations of every migration in src.
func Validate(src Source) error {
	if src.FS == nil || src.Dir == "" {
		return fmt.Errorf("migrate: migration source is required")
	}
	entries, err := fs.ReadDir(src.FS, src.Dir)
	if err != nil {
		return fmt.Errorf("migrate: read dir %q: %w", src.Dir, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("migrate: invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("migrate: duplicate version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		b, err := fs.ReadFile(src.FS, path(src.Dir, name))
		if err != nil {
			return fmt.Errorf("migrate: read %q: %w", name, err)
		}
		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return fmt.Errorf("migrate: %q missing \"-- +goose Up\"", name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return fmt.Errorf("migrate: %q missing \"-- +goose Down\"", name)
		}
	}
	return nil
}

func path(dir, name string) string {
	if dir == "." {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}
