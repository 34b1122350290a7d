// Package config provides YAML-based configuration for the studio server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Animation AnimationConfig `yaml:"animation"`
	Security  SecurityConfig  `yaml:"security"`
	Advanced  AdvancedConfig  `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// StorageConfig contains file storage settings.
type StorageConfig struct {
	DataDirectory      string `yaml:"dataDirectory"`
	UploadsDirectory   string `yaml:"uploadsDirectory"`
	ArtifactsDirectory string `yaml:"artifactsDirectory"`
	TempDirectory      string `yaml:"tempDirectory"`
}

// AIConfig configures the hosted LLM provider.
type AIConfig struct {
	Provider       string `yaml:"provider"` // "groq" or "gemini"
	Model          string `yaml:"model"`
	Endpoint       string `yaml:"endpoint"` // override for groq-compatible endpoints
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	MaxRetries     int    `yaml:"maxRetries"`
}

// AnimationConfig bounds animation rendering.
type AnimationConfig struct {
	FrameWidth    int `yaml:"frameWidth"`
	FrameHeight   int `yaml:"frameHeight"`
	MinDurationS  int `yaml:"minDurationSeconds"`
	MaxDurationS  int `yaml:"maxDurationSeconds"`
	MinFPS        int `yaml:"minFps"`
	MaxFPS        int `yaml:"maxFps"`
	MaxConcurrent int `yaml:"maxConcurrentJobs"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	AllowFileDeletion bool   `yaml:"allowFileDeletion"`
	AllowedFileTypes  string `yaml:"allowedFileTypes"`
}

// AdvancedConfig contains tuning options.
type AdvancedConfig struct {
	EnableRequestLogging   bool   `yaml:"enableRequestLogging"`
	EnableCompression      bool   `yaml:"enableCompression"`
	CompressionLevel       int    `yaml:"compressionLevel"`
	SessionTimeoutMinutes  int    `yaml:"sessionTimeoutMinutes"`
	CleanupIntervalMinutes int    `yaml:"cleanupIntervalMinutes"`
	DuckDBThreads          int    `yaml:"duckdbThreads"`
	DuckDBMemoryLimit      string `yaml:"duckdbMemoryLimit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
			BodyLimit:    "256M",
		},
		Storage: StorageConfig{
			DataDirectory:      "./data",
			UploadsDirectory:   "./data/uploads",
			ArtifactsDirectory: "./data/artifacts",
			TempDirectory:      "./data/temp",
		},
		AI: AIConfig{
			Provider:       "groq",
			Model:          "llama-3.3-70b-versatile",
			TimeoutSeconds: 30,
			MaxRetries:     2,
		},
		Animation: AnimationConfig{
			FrameWidth:    960,
			FrameHeight:   540,
			MinDurationS:  1,
			MaxDurationS:  10,
			MinFPS:        24,
			MaxFPS:        60,
			MaxConcurrent: 2,
		},
		Security: SecurityConfig{
			AllowFileDeletion: true,
			AllowedFileTypes:  ".csv,.txt,.xlsx",
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging:   true,
			EnableCompression:      true,
			CompressionLevel:       5,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			DuckDBThreads:          4,
			DuckDBMemoryLimit:      "1GB",
		},
	}
}

// LoadConfig loads configuration from a YAML file, creating a default file
// on first run. Environment variables (including a .env file, if present)
// override selected values.
func LoadConfig(configPath string) (*AppConfig, error) {
	// API keys live in the environment, optionally via .env
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.applyEnvironmentOverrides()
		cfg.resolvePaths(filepath.Dir(configPath))
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.resolvePaths(filepath.Dir(configPath))

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Data Story Studio configuration\n# This file is auto-generated on first run\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		c.AI.Provider = provider
	}
	if model := os.Getenv("AI_MODEL"); model != "" {
		c.AI.Model = model
	}
}

// resolvePaths converts relative paths to absolute based on config file location.
func (c *AppConfig) resolvePaths(configDir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
	resolve(&c.Storage.DataDirectory)
	resolve(&c.Storage.UploadsDirectory)
	resolve(&c.Storage.ArtifactsDirectory)
	resolve(&c.Storage.TempDirectory)
}

// GetDataDir returns the resolved data directory.
func (c *AppConfig) GetDataDir() string { return c.Storage.DataDirectory }

// GetUploadDir returns the resolved uploads directory.
func (c *AppConfig) GetUploadDir() string { return c.Storage.UploadsDirectory }

// GetArtifactsDir returns the resolved artifacts directory.
func (c *AppConfig) GetArtifactsDir() string { return c.Storage.ArtifactsDirectory }

// GetTempDir returns the resolved temp directory.
func (c *AppConfig) GetTempDir() string { return c.Storage.TempDirectory }

// GetServerAddr returns the host:port the server should bind.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all configured data directories.
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
		c.Storage.ArtifactsDirectory,
		c.Storage.TempDirectory,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
