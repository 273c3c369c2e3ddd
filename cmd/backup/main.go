package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"gestor/internal/config"
	"gestor/internal/log"
	"gestor/internal/storage"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentBackup})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	path, err := writeBackup(context.Background(), store, cfg)
	if err != nil {
		logger.Error("backup failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("backup written", "path", path)

	removed, err := pruneOld(cfg.BackupDir, cfg.BackupPrefix, cfg.BackupRetain)
	if err != nil {
		logger.Error("pruning old backups failed", log.FieldError, err)
		os.Exit(1)
	}
	if removed > 0 {
		logger.Info("old backups pruned", "removed", removed, "retained", cfg.BackupRetain)
	}
}

func writeBackup(ctx context.Context, store *storage.SQLiteStore, cfg *config.Config) (string, error) {
	dump, err := store.Dump(ctx)
	if err != nil {
		return "", fmt.Errorf("dump database: %w", err)
	}

	if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.json", cfg.BackupPrefix, time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(cfg.BackupDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}

// pruneOld keeps the retain most recent backups with the given prefix and
// removes the rest.
func pruneOld(dir, prefix string, retain int) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.json"))
	if err != nil {
		return 0, err
	}
	if len(matches) <= retain {
		return 0, nil
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	backups := make([]backup, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: path, modTime: info.ModTime()})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.After(backups[j].modTime)
	})

	removed := 0
	for _, b := range backups[retain:] {
		if err := os.Remove(b.path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", b.path, err)
		}
		removed++
	}
	return removed, nil
}
