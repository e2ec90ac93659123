package gcp

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
	Credentials  Credentials
}

// ResolveObjectStorageConfigFromEnv reads OBJECT_STORAGE_MODE. An unset mode
// with STORAGE_EMULATOR_HOST present selects the emulator.
func ResolveObjectStorageConfigFromEnv() (ObjectStorageConfig, error) {
	mode := ObjectStorageMode(strings.ToLower(strings.TrimSpace(os.Getenv("OBJECT_STORAGE_MODE"))))
	host := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
	if mode == "" {
		mode = ObjectStorageModeGCS
		if host != "" {
			mode = ObjectStorageModeGCSEmulator
		}
	}
	switch mode {
	case ObjectStorageModeGCS:
		return ObjectStorageConfig{Mode: mode, Credentials: CredentialsFromEnv()}, nil
	case ObjectStorageModeGCSEmulator:
		if host == "" {
			return ObjectStorageConfig{}, fmt.Errorf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", mode)
		}
		return ObjectStorageConfig{Mode: mode, EmulatorHost: host}, nil
	default:
		return ObjectStorageConfig{}, fmt.Errorf("invalid OBJECT_STORAGE_MODE=%q", mode)
	}
}

func NewStorageClient(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := append(cfg.Credentials.clientOptions(), option.WithScopes(storage.ScopeReadOnly))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("invalid object storage mode %q", cfg.Mode)
	}
}

// ObjectRef names one object, parsed from gs://bucket/path/to/object.
type ObjectRef struct {
	Bucket string
	Object string
}

func (r ObjectRef) String() string { return "gs://" + r.Bucket + "/" + r.Object }

func ParseObjectURL(raw string) (ObjectRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ObjectRef{}, err
	}
	if u.Scheme != "gs" {
		return ObjectRef{}, fmt.Errorf("not a gs:// url: %q", raw)
	}
	obj := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || obj == "" {
		return ObjectRef{}, fmt.Errorf("gs url needs bucket and object: %q", raw)
	}
	return ObjectRef{Bucket: u.Host, Object: obj}, nil
}

// ReadObject reads at most maxBytes of the object; larger objects are rejected.
func ReadObject(ctx context.Context, client *storage.Client, ref ObjectRef, maxBytes int64) ([]byte, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client not initialized")
	}
	rc, err := client.Bucket(ref.Bucket).Object(ref.Object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", ref, maxBytes)
	}
	return b, nil
}
