package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/cppla/frypillows/config"
)

type Mode string

const (
	ModeGCS         Mode = "gcs"
	ModeGCSEmulator Mode = "gcs_emulator"
	ModeMemory      Mode = "memory"
)

// ModeConfigError reports an unusable OBJECT_STORAGE_MODE / emulator combination.
type ModeConfigError struct {
	Mode         string
	EmulatorHost string
	Reason       string
}

func (e *ModeConfigError) Error() string {
	return fmt.Sprintf("invalid object storage config (mode=%q emulator_host=%q): %s", e.Mode, e.EmulatorHost, e.Reason)
}

// ValidateMode checks the storage mode and, for the emulator, its host URL.
func ValidateMode(mode, emulatorHost string) (Mode, error) {
	switch Mode(mode) {
	case ModeGCS, ModeMemory:
		return Mode(mode), nil
	case ModeGCSEmulator:
		host := strings.TrimSpace(emulatorHost)
		if host == "" {
			return "", &ModeConfigError{Mode: mode, Reason: "STORAGE_EMULATOR_HOST is required"}
		}
		u, err := url.Parse(host)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", &ModeConfigError{Mode: mode, EmulatorHost: host, Reason: "expected absolute URL like http://localhost:4443"}
		}
		return ModeGCSEmulator, nil
	default:
		return "", &ModeConfigError{Mode: mode, EmulatorHost: emulatorHost, Reason: "allowed: gcs, gcs_emulator, memory"}
	}
}

// OpenBuckets builds the pending, pillow and photo stores for the configured mode.
// The returned close function releases the GCS client, if any.
func OpenBuckets(ctx context.Context, cfg config.AppConfig) (Buckets, func() error, error) {
	mode, err := ValidateMode(cfg.StorageMode, cfg.StorageEmulatorHost)
	if err != nil {
		return Buckets{}, nil, err
	}
	if mode == ModeMemory {
		return Buckets{
			Pending: NewMemoryStore(cfg.PendingBucket),
			Pillows: NewMemoryStore(cfg.PillowBucket),
			Photos:  NewMemoryStore(cfg.PhotoBucket),
		}, func() error { return nil }, nil
	}

	var opts []option.ClientOption
	if mode == ModeGCSEmulator {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(cfg.StorageEmulatorHost, "/"))
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return Buckets{}, nil, fmt.Errorf("create storage client: %w", err)
	}
	return Buckets{
		Pending: NewGCSStore(client, cfg.PendingBucket),
		Pillows: NewGCSStore(client, cfg.PillowBucket),
		Photos:  NewGCSStore(client, cfg.PhotoBucket),
	}, client.Close, nil
}
