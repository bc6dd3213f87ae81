// Package config loads process configuration from an optional YAML file with
// NFIRSCORE_* environment overrides, plus the department field policy file.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"nfirscore/internal/blob"
	"nfirscore/pkg/domain"
)

type AppConfig struct {
	Storage        StorageConfig        `yaml:"storage"`
	Blob           BlobConfig           `yaml:"blob"`
	Log            LogConfig            `yaml:"log"`
	HTTP           HTTPConfig           `yaml:"http"`
	Authz          AuthzConfig          `yaml:"authz"`
	Policy         PolicyConfig         `yaml:"policy"`
	Classification ClassificationConfig `yaml:"classification"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver" env:"NFIRSCORE_STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath  string `yaml:"sqlite_path" env:"NFIRSCORE_STORAGE_SQLITE_PATH" env-default:"data/nfirscore.db"`
	PostgresDSN string `yaml:"postgres_dsn" env:"NFIRSCORE_STORAGE_POSTGRES_DSN"`
}

type BlobConfig struct {
	Driver string       `yaml:"driver" env:"NFIRSCORE_BLOB_DRIVER" env-default:"fs"`
	FSRoot string       `yaml:"fs_root" env:"NFIRSCORE_BLOB_FS_ROOT" env-default:"data/blobs"`
	S3     BlobS3Config `yaml:"s3"`
}

type BlobS3Config struct {
	Bucket          string `yaml:"bucket" env:"NFIRSCORE_BLOB_S3_BUCKET"`
	Region          string `yaml:"region" env:"NFIRSCORE_BLOB_S3_REGION" env-default:"us-east-1"`
	Prefix          string `yaml:"prefix" env:"NFIRSCORE_BLOB_S3_PREFIX"`
	Endpoint        string `yaml:"endpoint" env:"NFIRSCORE_BLOB_S3_ENDPOINT"`
	PathStyle       bool   `yaml:"path_style" env:"NFIRSCORE_BLOB_S3_PATH_STYLE" env-default:"false"`
	AccessKeyID     string `yaml:"access_key_id" env:"NFIRSCORE_BLOB_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"NFIRSCORE_BLOB_S3_SECRET_ACCESS_KEY"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"NFIRSCORE_LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"NFIRSCORE_LOG_DEVELOPMENT" env-default:"false"`
}

type HTTPConfig struct {
	ListenAddr     string `yaml:"listen_addr" env:"NFIRSCORE_HTTP_LISTEN_ADDR" env-default:"127.0.0.1:8080"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" env:"NFIRSCORE_HTTP_MAX_UPLOAD_BYTES" env-default:"33554432"`
}

type AuthzConfig struct {
	ElevatedRoles []string `yaml:"elevated_roles" env:"NFIRSCORE_AUTHZ_ELEVATED_ROLES" env-separator:"," env-default:"chief,administrator"`
	// RoleGrants maps department roles to the built-in role they inherit,
	// e.g. battalion_chief: chief.
	RoleGrants map[string]string `yaml:"role_grants" env:"NFIRSCORE_AUTHZ_ROLE_GRANTS" env-separator:","`
}

type PolicyConfig struct {
	Path string `yaml:"path" env:"NFIRSCORE_POLICY_PATH"`
}

type ClassificationConfig struct {
	WildlandCodes  []string `yaml:"wildland_codes" env:"NFIRSCORE_CLASSIFICATION_WILDLAND_CODES" env-separator:","`
	StructureCodes []string `yaml:"structure_codes" env:"NFIRSCORE_CLASSIFICATION_STRUCTURE_CODES" env-separator:","`
}

// Load reads path when it names an existing file, then applies environment
// overrides. An empty path reads the environment only.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return AppConfig{}, fmt.Errorf("stat config: %w", err)
			}
			path = ""
		}
	}
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and incomplete S3 settings.
func (c AppConfig) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	for _, role := range c.Authz.ElevatedRoles {
		if !domain.Role(role).Known() {
			return fmt.Errorf("unknown elevated role %q", role)
		}
	}
	for member, role := range c.Authz.RoleGrants {
		member = strings.ToLower(strings.TrimSpace(member))
		if member == "" || domain.Role(member).Known() {
			return fmt.Errorf("role grant member %q must be a new department role", member)
		}
		if !domain.Role(role).Known() {
			return fmt.Errorf("role grant %s: unknown role %q", member, role)
		}
	}
	return nil
}

// BlobStoreConfig converts the blob section for blob.Open.
func (c AppConfig) BlobStoreConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Region:          c.Blob.S3.Region,
			Bucket:          c.Blob.S3.Bucket,
			Prefix:          c.Blob.S3.Prefix,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	}
}

// ElevatedRoles returns the configured unlock roles as domain roles.
func (c AppConfig) ElevatedRoles() []domain.Role {
	out := make([]domain.Role, 0, len(c.Authz.ElevatedRoles))
	for _, r := range c.Authz.ElevatedRoles {
		out = append(out, domain.Role(r))
	}
	return out
}

// RoleGrants returns the department role inheritance, keyed by member role.
func (c AppConfig) RoleGrants() map[domain.Role]domain.Role {
	out := make(map[domain.Role]domain.Role, len(c.Authz.RoleGrants))
	for member, role := range c.Authz.RoleGrants {
		out[domain.Role(strings.ToLower(strings.TrimSpace(member)))] = domain.Role(role)
	}
	return out
}

// DepartmentRoles lists the granted member roles in sorted order.
func (c AppConfig) DepartmentRoles() []domain.Role {
	out := make([]domain.Role, 0, len(c.Authz.RoleGrants))
	for member := range c.RoleGrants() {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClassificationTable builds the table with any configured code overrides.
func (c AppConfig) ClassificationTable() *domain.ClassificationTable {
	return domain.NewClassificationTable(nil, c.Classification.WildlandCodes, c.Classification.StructureCodes)
}
