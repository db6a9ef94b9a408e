package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type serverEnv struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	BaseURL     string `env:"BASE_URL"`
	Secret      string `env:"UPLOAD_SECRET"`
	AppID       string `env:"APP_ID" env-default:"default"`

	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	StorageType  string `env:"STORAGE_TYPE" env-default:"memory"`
}

type databaseEnv struct {
	Port     uint16 `env:"RELAY_PG_PORT" env-default:"5432"`
	Host     string `env:"RELAY_PG_HOST" env-default:"localhost"`
	Name     string `env:"RELAY_PG_NAME" env-default:"upload_relay"`
	User     string `env:"RELAY_PG_USER" env-default:"relay"`
	Password string `env:"RELAY_PG_PASSWORD" env-default:"pwd"`
}

func (e databaseEnv) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", e.User, e.Password, e.Host, e.Port, e.Name)
}

type fsEnv struct {
	BaseDir string `env:"STORAGE_BASE_DIR" env-default:"./data/uploads"`
}

type s3Env struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	BucketName      string `env:"AWS_S3_BUCKET" env-default:"upload-relay"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// WithEnv populates the configuration from process environment variables
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env serverEnv
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		c.Port = env.Port
		c.Environment = env.Environment
		c.BaseURL = env.BaseURL
		c.Secret = env.Secret
		c.AppID = env.AppID
		c.DatabaseType = env.DatabaseType
		c.Storage.Type = env.StorageType

		if env.DatabaseType == "postgres" {
			var db databaseEnv
			if err := cleanenv.ReadEnv(&db); err != nil {
				return fmt.Errorf("failed to read database environment: %w", err)
			}
			c.DatabaseURL = db.dsn()
		}

		switch env.StorageType {
		case "fs":
			var fs fsEnv
			if err := cleanenv.ReadEnv(&fs); err != nil {
				return fmt.Errorf("failed to read storage environment: %w", err)
			}
			c.Storage.BaseDir = fs.BaseDir
		case "s3":
			var s3 s3Env
			if err := cleanenv.ReadEnv(&s3); err != nil {
				return fmt.Errorf("failed to read storage environment: %w", err)
			}
			c.Storage.Bucket = s3.BucketName
			c.Storage.Region = s3.Region
			c.Storage.Endpoint = s3.Endpoint
			c.Storage.AccessKeyID = s3.AccessKeyID
			c.Storage.SecretAccessKey = s3.SecretAccessKey
			c.Storage.UsePathStyle = s3.UsePathStyle
			c.Storage.CreateBucketIfNotExist = s3.CreateBucket
		}

		return nil
	}
}

// WithSecret overrides the service secret
func WithSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.Secret = secret
		return nil
	}
}

// WithBaseURL overrides the externally visible base URL
func WithBaseURL(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.BaseURL = baseURL
		return nil
	}
}
