package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"contact-splitter/internal/models"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Spreadsheet SpreadsheetConfig `yaml:"spreadsheet"`
	Defaults    DefaultsConfig    `yaml:"defaults"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr" validate:"required"`
	MaxUploadMB int64  `yaml:"max_upload_mb" validate:"gt=0"`
}

type StorageConfig struct {
	UploadDir    string `yaml:"upload_dir" validate:"required"`
	ProcessedDir string `yaml:"processed_dir" validate:"required"`
}

// SpreadsheetConfig selects the xlsx engine and the sheet to read.
// An empty Sheet means the first sheet of the workbook.
type SpreadsheetConfig struct {
	Engine string `yaml:"engine" validate:"oneof=excelize tealeg"`
	Sheet  string `yaml:"sheet"`
}

type DefaultsConfig struct {
	ContactColumn string `yaml:"contact_column"`
	MaxRows       int    `yaml:"max_rows" validate:"gt=0"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Driver   string `yaml:"driver" validate:"oneof=pgdriver pq"`
	DSN      string `yaml:"dsn" validate:"required_if=Enabled true"`
	Password string `yaml:"password" json:"-"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
}

const (
	EngineExcelize = "excelize"
	EngineTealeg   = "tealeg"
	DriverPgdriver = "pgdriver"
	DriverPq       = "pq"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:      ServerConfig{Addr: ":8080", MaxUploadMB: 32},
		Storage:     StorageConfig{UploadDir: "uploads", ProcessedDir: "processed"},
		Spreadsheet: SpreadsheetConfig{Engine: EngineExcelize},
		Defaults:    DefaultsConfig{MaxRows: models.DefaultMaxRows},
		Database:    DatabaseConfig{Driver: DriverPgdriver},
		Log:         LogConfig{Level: "debug"},
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
