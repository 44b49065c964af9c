package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Load when no document is stored under the key.
var ErrNotFound = errors.New("storage: document not found")

// ErrCorrupt is returned by Load when the stored document is not valid JSON
// for the target type. Any other Load error is a backend failure.
var ErrCorrupt = errors.New("storage: document is corrupt")

// KV persists whole JSON documents under string keys. Writes replace the
// previous document atomically from the caller's point of view.
type KV interface {
	Load(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
	Close() error
}

type Config struct {
	Driver  string        `json:"driver"`
	File    FileConfig    `json:"file"`
	SQLite  SQLiteConfig  `json:"sqlite"`
	MongoDB MongoDBConfig `json:"mongodb"`
	Redis   RedisConfig   `json:"redis"`
}

type FileConfig struct {
	Dir string `json:"dir"`
}

type SQLiteConfig struct {
	Path string `json:"path"`
}

type MongoDBConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type RedisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (KV, error) {
	logger = logger.Named("storage")
	switch cfg.Driver {
	case "", "file":
		kv, err := NewFileKV(cfg.File.Dir)
		if err != nil {
			return nil, err
		}
		logger.Info("file storage initialised", zap.String("dir", kv.dir))
		return kv, nil

	case "sqlite":
		kv, err := NewSQLiteKV(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite storage initialised", zap.String("path", cfg.SQLite.Path))
		return kv, nil

	case "mongodb":
		kv, err := NewMongoKV(ctx, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		logger.Info("mongodb storage initialised", zap.String("database", cfg.MongoDB.Database))
		return kv, nil

	case "redis":
		kv, err := NewRedisKV(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("redis storage initialised", zap.String("addr", cfg.Redis.Addr))
		return kv, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s (use \"file\", \"sqlite\", \"mongodb\" or \"redis\")", cfg.Driver)
	}
}

func decode(key string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}
