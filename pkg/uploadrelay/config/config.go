package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
	repomemory "github.com/tendant/upload-relay/pkg/uploadrelay/repo/memory"
	repopg "github.com/tendant/upload-relay/pkg/uploadrelay/repo/postgres"
	"github.com/tendant/upload-relay/pkg/uploadrelay/signature"
	fsstorage "github.com/tendant/upload-relay/pkg/uploadrelay/storage/fs"
	memorystorage "github.com/tendant/upload-relay/pkg/uploadrelay/storage/memory"
	s3storage "github.com/tendant/upload-relay/pkg/uploadrelay/storage/s3"
	"github.com/tendant/upload-relay/pkg/uploadrelay/token"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		AppID:        token.DefaultAppID,
		DatabaseType: "memory",
		Storage: StorageConfig{
			Type: "memory",
		},
	}
}

// ServerConfig represents server configuration for the upload-relay
// service. It is read-only after startup: the secret, base URL and app ID
// are threaded into each component's constructor rather than read from
// ambient global state.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// BaseURL is the externally visible URL signed into upload targets
	// and private read URLs. Defaults to http://localhost:PORT.
	BaseURL string

	// Secret is the service secret used for both guards. Must follow the
	// sk_ prefix convention.
	Secret string

	// AppID identifies this deployment in issued credentials
	AppID string

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration: a single process-wide backend binding
	Storage StorageConfig
}

// StorageConfig represents configuration for the byte-storage backend
type StorageConfig struct {
	Type string // "memory", "fs", "s3"

	// fs
	BaseDir string

	// s3
	Bucket                 string
	Region                 string
	Endpoint               string
	AccessKeyID            string
	SecretAccessKey        string
	UsePathStyle           bool
	CreateBucketIfNotExist bool
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.Secret == "" {
		return errors.New("service secret is required")
	}
	if !strings.HasPrefix(c.Secret, token.SecretPrefix) {
		return fmt.Errorf("service secret must start with %q", token.SecretPrefix)
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if c.Storage.BaseDir == "" {
			return errors.New("storage base_dir is required for fs storage")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.Port
	}

	return nil
}

// BuildService creates the relay service and its signer from the
// configuration. The signer is returned separately because the HTTP guards
// need it too.
func (c *ServerConfig) BuildService() (uploadrelay.Service, *signature.Signer, error) {
	repo, err := c.buildRepository()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}

	blob, err := c.buildStorageBackend()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	signer := signature.New(c.Secret)

	svc, err := uploadrelay.New(
		uploadrelay.WithRepository(repo),
		uploadrelay.WithBlobStore(blob),
		uploadrelay.WithSigner(signer),
		uploadrelay.WithBaseURL(c.BaseURL),
	)
	if err != nil {
		return nil, nil, err
	}
	return svc, signer, nil
}

// EncodeCredential returns the self-describing credential bundle for this
// deployment, for handing to client SDKs
func (c *ServerConfig) EncodeCredential() (string, error) {
	return token.Encode(token.Credential{
		APIKey:     c.Secret,
		AppID:      c.AppID,
		IngestHost: c.BaseURL,
	})
}

func (c *ServerConfig) buildRepository() (uploadrelay.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) buildStorageBackend() (uploadrelay.BlobStore, error) {
	// Public URLs for local backends point back at the relay's own CDN route
	cdnPrefix := c.BaseURL + "/f"

	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(cdnPrefix), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.Storage.BaseDir,
			URLPrefix: cdnPrefix,
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.Storage.Region,
			Bucket:                 c.Storage.Bucket,
			AccessKeyID:            c.Storage.AccessKeyID,
			SecretAccessKey:        c.Storage.SecretAccessKey,
			Endpoint:               c.Storage.Endpoint,
			UsePathStyle:           c.Storage.UsePathStyle,
			CreateBucketIfNotExist: c.Storage.CreateBucketIfNotExist,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}
