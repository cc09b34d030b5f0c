package gcp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

var (
	ErrInvalidStorageMode  = errors.New("invalid object storage mode")
	ErrMissingEmulatorHost = errors.New("emulator mode requires STORAGE_EMULATOR_HOST")
	ErrInvalidEmulatorHost = errors.New("invalid STORAGE_EMULATOR_HOST")
)

// ObjectStorageConfig selects where scene media and SCORM packages are written. Local
// development points it at a fake-gcs container.
type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
	// Inferred is set when the mode was derived from a bare STORAGE_EMULATOR_HOST.
	Inferred bool
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

// ResolveObjectStorageConfig parses OBJECT_STORAGE_MODE. Leaving it empty while an
// emulator host is exported selects the emulator.
func ResolveObjectStorageConfig(rawMode, emulatorHost string) (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{
		Mode:         ObjectStorageMode(strings.ToLower(strings.TrimSpace(rawMode))),
		EmulatorHost: strings.TrimSpace(emulatorHost),
	}
	if cfg.Mode == "" {
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode, cfg.Inferred = ObjectStorageModeGCSEmulator, true
		}
	}
	return cfg, ValidateObjectStorageConfig(cfg)
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		return nil
	case ObjectStorageModeGCSEmulator:
		if cfg.EmulatorHost == "" {
			return ErrMissingEmulatorHost
		}
		if u, err := url.Parse(cfg.EmulatorHost); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w %q: want an absolute url like http://fake-gcs:4443", ErrInvalidEmulatorHost, cfg.EmulatorHost)
		}
		return nil
	default:
		return fmt.Errorf("%w %q: want %q or %q", ErrInvalidStorageMode, cfg.Mode, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	}
}
