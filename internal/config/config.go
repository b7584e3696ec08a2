package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/xorgen/internal/redact"
)

// Config captures the xorgen configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	APIAddr     string      `yaml:"api_addr"`
	AuthToken   string      `yaml:"auth_token"`
	JWTSecret   string      `yaml:"jwt_secret"`
	DataDir     string      `yaml:"data_dir"`
	Placeholder string      `yaml:"placeholder"`
	Workers     int         `yaml:"workers"`
	AuditLog    string      `yaml:"audit_log"`
	RecipesDir  string      `yaml:"recipes_dir"`
	Files       FilesConfig `yaml:"files"`
}

// FilesConfig names the working files used by the CLI when no explicit path
// is given.
type FilesConfig struct {
	Original  string `yaml:"original"`
	Plain     string `yaml:"plain"`
	Cipher    string `yaml:"cipher"`
	Key       string `yaml:"key"`
	Decrypted string `yaml:"decrypted"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIAddr:     "127.0.0.1:8713",
		AuthToken:   "",
		JWTSecret:   "",
		DataDir:     defaultDataDir(),
		Placeholder: "_",
		Workers:     1,
		AuditLog:    "",
		RecipesDir:  "",
		Files: FilesConfig{
			Original:  "orig.txt",
			Plain:     "plain.txt",
			Cipher:    "crypto.txt",
			Key:       "key.txt",
			Decrypted: "decrypt.txt",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".xorgen"
	}
	return filepath.Join(home, ".xorgen")
}

// PlaceholderByte returns the configured placeholder as a single byte.
func (c Config) PlaceholderByte() (byte, error) {
	if len(c.Placeholder) != 1 {
		return 0, fmt.Errorf("placeholder must be exactly one byte, got %q", c.Placeholder)
	}
	return c.Placeholder[0], nil
}

// HistoryPath is the SQLite database holding saved recovery runs.
func (c Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// RecipesPath is the directory holding saved pipelines.
func (c Config) RecipesPath() string {
	if strings.TrimSpace(c.RecipesDir) != "" {
		return c.RecipesDir
	}
	return filepath.Join(c.DataDir, "recipes")
}

// Masked returns a copy safe to print, with credentials replaced.
func (c Config) Masked() Config {
	if c.AuthToken != "" {
		c.AuthToken = redact.Placeholder
	}
	if c.JWTSecret != "" {
		c.JWTSecret = redact.Placeholder
	}
	return c
}

// Validate checks values that cannot be fixed up silently.
func (c Config) Validate() error {
	if _, err := c.PlaceholderByte(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in order:
//  1. ~/.xorgen/config.yaml
//  2. ./xorgen.yml
//
// Environment variables prefixed with XORGEN_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return loadFile(cfg, filepath.Join(home, ".xorgen", "config.yaml"))
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadFile(cfg, filepath.Join(wd, "xorgen.yml"))
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

type fileConfig struct {
	APIAddr     *string          `yaml:"api_addr"`
	AuthToken   *string          `yaml:"auth_token"`
	JWTSecret   *string          `yaml:"jwt_secret"`
	DataDir     *string          `yaml:"data_dir"`
	Placeholder *string          `yaml:"placeholder"`
	Workers     *int             `yaml:"workers"`
	AuditLog    *string          `yaml:"audit_log"`
	RecipesDir  *string          `yaml:"recipes_dir"`
	Files       *fileFilesConfig `yaml:"files"`
}

type fileFilesConfig struct {
	Original  *string `yaml:"original"`
	Plain     *string `yaml:"plain"`
	Cipher    *string `yaml:"cipher"`
	Key       *string `yaml:"key"`
	Decrypted *string `yaml:"decrypted"`
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	setString(&cfg.APIAddr, fc.APIAddr)
	setString(&cfg.AuthToken, fc.AuthToken)
	setString(&cfg.JWTSecret, fc.JWTSecret)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.AuditLog, fc.AuditLog)
	setString(&cfg.RecipesDir, fc.RecipesDir)
	if fc.Placeholder != nil {
		// Not trimmed: a space is a valid placeholder.
		cfg.Placeholder = *fc.Placeholder
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.Files != nil {
		setString(&cfg.Files.Original, fc.Files.Original)
		setString(&cfg.Files.Plain, fc.Files.Plain)
		setString(&cfg.Files.Cipher, fc.Files.Cipher)
		setString(&cfg.Files.Key, fc.Files.Key)
		setString(&cfg.Files.Decrypted, fc.Files.Decrypted)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func applyEnvOverrides(cfg *Config) error {
	if val := strings.TrimSpace(os.Getenv("XORGEN_API_ADDR")); val != "" {
		cfg.APIAddr = val
	}
	if val := strings.TrimSpace(os.Getenv("XORGEN_AUTH_TOKEN")); val != "" {
		cfg.AuthToken = val
	}
	if val := strings.TrimSpace(os.Getenv("XORGEN_JWT_SECRET")); val != "" {
		cfg.JWTSecret = val
	}
	if val := strings.TrimSpace(os.Getenv("XORGEN_DATA_DIR")); val != "" {
		cfg.DataDir = val
	}
	if val := os.Getenv("XORGEN_PLACEHOLDER"); val != "" {
		cfg.Placeholder = val
	}
	if val := strings.TrimSpace(os.Getenv("XORGEN_WORKERS")); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parse XORGEN_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if val := strings.TrimSpace(os.Getenv("XORGEN_AUDIT_LOG")); val != "" {
		cfg.AuditLog = val
	}
	if val := strings.TrimSpace(os.Getenv("XORGEN_RECIPES_DIR")); val != "" {
		cfg.RecipesDir = val
	}
	return nil
}
