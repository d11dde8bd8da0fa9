package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"qrpdf/internal/errors"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Environment overrides, read after the config file.
const (
	EnvCameraRoot  = "QRPDF_CAMERA_ROOT"
	EnvDownloadDir = "QRPDF_DOWNLOAD_DIR"
	EnvGCSBucket   = "QRPDF_GCS_BUCKET"
	EnvS3Bucket    = "QRPDF_S3_BUCKET"
	EnvListen      = "QRPDF_LISTEN"
	EnvDebug       = "QRPDF_DEBUG"
)

// Config represents the application configuration structure.
// The decode parameters (frame rate, detection region) are fixed and
// deliberately absent here.
type Config struct {
	Camera struct {
		Root         string `yaml:"root"`          // Directory holding one subdirectory per camera
		FramePattern string `yaml:"frame_pattern"` // Glob for frame files inside a camera directory
	} `yaml:"camera"`
	Download struct {
		Directory string `yaml:"directory"`  // Local directory for saved PDFs
		Timeout   int    `yaml:"timeout"`    // HTTP timeout in seconds
		UserAgent string `yaml:"user_agent"` // User-Agent header for fetches
		GCSBucket string `yaml:"gcs_bucket"` // Optional bucket mirrored after each save
		Inspect   bool   `yaml:"inspect"`    // Report the page count of saved PDFs
		MaxBytes  int64  `yaml:"max_bytes"`  // Largest file accepted from a scanned link
		S3        struct {
			Bucket   string `yaml:"bucket"`   // Optional S3 bucket, "bucket/prefix" allowed
			Region   string `yaml:"region"`   // Overrides the AWS default region
			Endpoint string `yaml:"endpoint"` // S3 compatible endpoint, e.g. MinIO
		} `yaml:"s3"`
	} `yaml:"download"`
	Server struct {
		Listen string `yaml:"listen"` // Address for `qrpdf serve`
	} `yaml:"server"`
	Log struct {
		Debug bool   `yaml:"debug"`
		JSON  bool   `yaml:"json"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Theme struct {
		Name     string `yaml:"name"`     // Theme name (default, dark, light, etc.)
		Primary  string `yaml:"primary"`  // Primary color for branding
		Success  string `yaml:"success"`  // Success message color
		Warning  string `yaml:"warning"`  // Warning message color
		Error    string `yaml:"error"`    // Error message color
		Info     string `yaml:"info"`     // Informational message color
		Emphasis string `yaml:"emphasis"` // Emphasis color for text that should stand out
		Border   string `yaml:"border"`   // Border color for frames
	} `yaml:"theme"`
}

// DefaultPath returns ~/.config/qrpdf/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qrpdf", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, errors.NewConfigError("cannot locate home directory", "", errors.ConfigNotFound, err)
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Unmarshal into a temporary config to preserve defaults for unset fields
	var tempCfg Config
	if err := yaml.Unmarshal(data, &tempCfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if tempCfg.Camera.Root != "" {
		cfg.Camera.Root = tempCfg.Camera.Root
	}
	if tempCfg.Camera.FramePattern != "" {
		cfg.Camera.FramePattern = tempCfg.Camera.FramePattern
	}
	if tempCfg.Download.Directory != "" {
		cfg.Download.Directory = tempCfg.Download.Directory
	}
	if tempCfg.Download.Timeout != 0 {
		cfg.Download.Timeout = tempCfg.Download.Timeout
	}
	if tempCfg.Download.UserAgent != "" {
		cfg.Download.UserAgent = tempCfg.Download.UserAgent
	}
	cfg.Download.GCSBucket = tempCfg.Download.GCSBucket
	cfg.Download.Inspect = tempCfg.Download.Inspect
	if tempCfg.Download.MaxBytes != 0 {
		cfg.Download.MaxBytes = tempCfg.Download.MaxBytes
	}
	cfg.Download.S3 = tempCfg.Download.S3
	if tempCfg.Server.Listen != "" {
		cfg.Server.Listen = tempCfg.Server.Listen
	}
	cfg.Log = tempCfg.Log
	if tempCfg.Theme.Name != "" {
		cfg.ApplyTheme(tempCfg.Theme.Name)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables onto the configuration.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvCameraRoot); v != "" {
		c.Camera.Root = v
	}
	if v := os.Getenv(EnvDownloadDir); v != "" {
		c.Download.Directory = v
	}
	if v := os.Getenv(EnvGCSBucket); v != "" {
		c.Download.GCSBucket = v
	}
	if v := os.Getenv(EnvS3Bucket); v != "" {
		c.Download.S3.Bucket = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Log.Debug = debug
		}
	}
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Camera.Root = "cameras"
	cfg.Camera.FramePattern = "*.{png,jpg,jpeg,gif,txt}"

	cfg.Download.Directory = defaultDownloadDir()
	cfg.Download.Timeout = 30
	cfg.Download.UserAgent = "qrpdf/dev"
	cfg.Download.Inspect = true
	cfg.Download.MaxBytes = 100 << 20

	cfg.Server.Listen = ":8088"

	cfg.ApplyTheme("default")
	return cfg
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	dir := filepath.Join(home, "Downloads")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return "."
}

// DownloadTimeout returns the HTTP timeout as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.Timeout) * time.Second
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	if c.Camera.Root == "" {
		return errors.NewConfigError("camera root is required", "camera.root", errors.InvalidConfig, nil)
	}
	if _, err := glob.Compile(c.Camera.FramePattern); err != nil {
		return errors.NewConfigError("invalid frame pattern", "camera.frame_pattern", errors.InvalidConfig, err)
	}

	if c.Download.Directory == "" {
		return errors.NewConfigError("download directory is required", "download.directory", errors.InvalidConfig, nil)
	}
	if c.Download.Timeout < 1 {
		return errors.NewConfigError("download timeout must be >= 1 second", "download.timeout", errors.InvalidConfig, nil)
	}

	if c.Download.MaxBytes < 1 {
		return errors.NewConfigError("download max_bytes must be positive", "download.max_bytes", errors.InvalidConfig, nil)
	}
	if c.Download.S3.Endpoint != "" && c.Download.S3.Bucket == "" {
		return errors.NewConfigError("s3 endpoint set without a bucket", "download.s3.bucket", errors.InvalidConfig, nil)
	}

	if c.Server.Listen == "" {
		return errors.NewConfigError("listen address is required", "server.listen", errors.InvalidConfig, nil)
	}

	if c.Theme.Name != "" && !validTheme(c.Theme.Name) {
		return errors.NewConfigError("unknown theme", "theme.name", errors.InvalidConfig, fmt.Errorf("%q", c.Theme.Name))
	}

	return nil
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

// GetTheme returns a predefined theme configuration by name.
// If the theme doesn't exist, returns the default theme.
func GetTheme(name string) map[string]string {
	themes := map[string]map[string]string{
		"default": {
			"primary":  "213", // Purple
			"success":  "114", // Green
			"warning":  "220", // Yellow
			"error":    "196", // Red
			"info":     "39",  // Blue
			"emphasis": "212", // Light Pink
			"border":   "213", // Purple
		},
		"dark": {
			"primary":  "105",
			"success":  "78",
			"warning":  "214",
			"error":    "160",
			"info":     "33",
			"emphasis": "147",
			"border":   "105",
		},
		"light": {
			"primary":  "135",
			"success":  "150",
			"warning":  "222",
			"error":    "210",
			"info":     "117",
			"emphasis": "219",
			"border":   "135",
		},
		"monochrome": {
			"primary":  "245",
			"success":  "252",
			"warning":  "241",
			"error":    "232",
			"info":     "248",
			"emphasis": "255",
			"border":   "245",
		},
	}

	if theme, exists := themes[name]; exists {
		return theme
	}

	return themes["default"]
}

// ApplyTheme sets the theme in the configuration.
func (c *Config) ApplyTheme(name string) {
	theme := GetTheme(name)

	c.Theme.Name = name
	c.Theme.Primary = theme["primary"]
	c.Theme.Success = theme["success"]
	c.Theme.Warning = theme["warning"]
	c.Theme.Error = theme["error"]
	c.Theme.Info = theme["info"]
	c.Theme.Emphasis = theme["emphasis"]
	c.Theme.Border = theme["border"]
}

// ListThemes returns a list of available theme names.
func ListThemes() []string {
	return []string{"default", "dark", "light", "monochrome"}
}

func validTheme(name string) bool {
	for _, t := range ListThemes() {
		if t == name {
			return true
		}
	}
	return false
}
