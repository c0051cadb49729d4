package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jwebster45206/effect-cards/pkg/world"
)

// World definition files (filesystem-backed)

func (r *RedisStorage) worldsDir() string {
	return filepath.Join(r.dataDir, "worlds")
}

func (r *RedisStorage) ListWorldFiles(ctx context.Context) (map[string]string, error) {
	worlds := make(map[string]string)

	err := filepath.WalkDir(r.worldsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("Failed to read world file", "path", path, "error", err)
			return nil
		}

		var head struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(file, &head); err != nil {
			r.logger.Warn("Failed to unmarshal world file", "path", path, "error", err)
			return nil
		}

		worlds[head.Name] = filepath.Base(path)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to walk worlds directory", "error", err)
		return nil, fmt.Errorf("failed to list worlds: %w", err)
	}

	return worlds, nil
}

func (r *RedisStorage) GetWorldFile(ctx context.Context, filename string) (*world.World, error) {
	if filename != filepath.Base(filename) || filepath.Ext(filename) != ".json" {
		return nil, fmt.Errorf("invalid world file name %q", filename)
	}

	path := filepath.Join(r.worldsDir(), filename)
	r.logger.Debug("Loading world file", "filename", filename, "full_path", path)

	w, err := world.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("world file %s: %w", filename, ErrNotFound)
		}
		return nil, err
	}
	return w, nil
}
