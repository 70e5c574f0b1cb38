package syncconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"dbsyncctl/internal/api"
)

const (
	// DriverPostgres is the only connection driver the daemon supports.
	DriverPostgres = "postgres"
	// Mask replaces secrets in displayed configs.
	Mask = "********"

	lockRetryDelay = 100 * time.Millisecond
)

// ErrLocked is returned when another writer holds the export lock past the
// caller's deadline.
var ErrLocked = errors.New("config file is locked by another writer")

// ToStored converts an assembled payload into the daemon's file layout.
func ToStored(cfg api.SyncConfig) api.StoredConfig {
	creds := cfg.Mergin
	return api.StoredConfig{
		Mergin:   &creds,
		InitFrom: cfg.InitFrom,
		Connections: []api.StoredConnection{{
			Driver:        DriverPostgres,
			ConnInfo:      cfg.Connection.ConnInfo,
			Modified:      cfg.Connection.Modified,
			Base:          cfg.Connection.Base,
			MerginProject: cfg.Connection.MerginProject,
			SyncFile:      cfg.Connection.SyncFile,
		}},
		Daemon: &api.StoredDaemon{SleepTime: cfg.Daemon.SleepTime},
	}
}

// MaskedCopy returns a copy of stored with the password hidden.
func MaskedCopy(stored api.StoredConfig) api.StoredConfig {
	out := stored
	if stored.Mergin != nil {
		creds := *stored.Mergin
		if creds.Password != "" {
			creds.Password = Mask
		}
		out.Mergin = &creds
	}
	if stored.Connections != nil {
		out.Connections = append([]api.StoredConnection(nil), stored.Connections...)
	}
	return out
}

// MarshalYAML renders stored in the daemon's YAML layout.
func MarshalYAML(stored api.StoredConfig) ([]byte, error) {
	data, err := yaml.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// UnmarshalYAML parses a daemon config file.
func UnmarshalYAML(data []byte) (api.StoredConfig, error) {
	var stored api.StoredConfig
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return api.StoredConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return stored, nil
}

// WriteFile writes stored to path as YAML while holding an advisory lock on
// path+".lock". The file is replaced atomically and created 0600 since it
// holds credentials.
func WriteFile(ctx context.Context, path string, stored api.StoredConfig) error {
	data, err := MarshalYAML(stored)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, path)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// ReadFile loads a daemon config file.
func ReadFile(path string) (api.StoredConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.StoredConfig{}, fmt.Errorf("read config: %w", err)
	}
	return UnmarshalYAML(data)
}
