package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/open-resource-api/internal/logx"
)

// DefaultPidFile must match the default used by `ora -s reload`.
const DefaultPidFile = "/var/run/ora.pid"

type Config struct {
	Server struct {
		Listen         string `yaml:"listen"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
		PidFile        string `yaml:"pid_file"`
		// BasePath prefixes every API route and default resource link, e.g. "/api".
		BasePath string `yaml:"base_path"`
		// MaxBodyBytes caps request bodies; larger bodies are rejected with 413.
		MaxBodyBytes int64 `yaml:"max_body_bytes"`
	} `yaml:"server"`

	Registry struct {
		Dir   string `yaml:"dir"`
		Watch bool   `yaml:"watch"`
		// WatchDebounceMs is how long file events must settle before a reload.
		WatchDebounceMs int `yaml:"watch_debounce_ms"`
	} `yaml:"registry"`

	API struct {
		SupportedExtensions []string `yaml:"supported_extensions"`
		// AllowLabels lets every request use label-style ids, not only
		// requests carrying ?label=true.
		AllowLabels bool `yaml:"allow_labels"`
	} `yaml:"api"`

	Logging struct {
		Level         string `yaml:"level"`
		AccessLog     *bool  `yaml:"access_log"`
		AccessLogPath string `yaml:"access_log_path"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	// #nosec G304 -- config path comes from trusted flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a config document and applies defaults and ORA_* env
// overrides.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AccessLogEnabled reports whether access logging is on. Defaults to true.
func (c *Config) AccessLogEnabled() bool {
	return c.Logging.AccessLog == nil || *c.Logging.AccessLog
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = ":3000"
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = 60000
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		cfg.Server.WriteTimeoutMs = 60000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	cfg.Server.BasePath = normalizeBasePath(cfg.Server.BasePath)
	if strings.TrimSpace(cfg.Registry.Dir) == "" {
		cfg.Registry.Dir = "./types"
	}
	if cfg.Registry.WatchDebounceMs <= 0 {
		cfg.Registry.WatchDebounceMs = 250
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ORA_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("ORA_PID_FILE")); v != "" {
		cfg.Server.PidFile = v
	}
	if v, ok := os.LookupEnv("ORA_BASE_PATH"); ok {
		cfg.Server.BasePath = normalizeBasePath(v)
	}
	if v := strings.TrimSpace(os.Getenv("ORA_READ_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.ReadTimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ORA_WRITE_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.WriteTimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ORA_MAX_BODY_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ORA_TYPES_DIR")); v != "" {
		cfg.Registry.Dir = v
	}
	cfg.Registry.Watch = envBool("ORA_TYPES_WATCH", cfg.Registry.Watch)
	if v := strings.TrimSpace(os.Getenv("ORA_SUPPORTED_EXTENSIONS")); v != "" {
		cfg.API.SupportedExtensions = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	cfg.API.AllowLabels = envBool("ORA_ALLOW_LABELS", cfg.API.AllowLabels)
	if v := strings.TrimSpace(os.Getenv("ORA_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("ORA_ACCESS_LOG")); v != "" {
		on := envBool("ORA_ACCESS_LOG", cfg.AccessLogEnabled())
		cfg.Logging.AccessLog = &on
	}
	if v := strings.TrimSpace(os.Getenv("ORA_ACCESS_LOG_PATH")); v != "" {
		cfg.Logging.AccessLogPath = v
	}
}

func validate(cfg *Config) error {
	if _, err := logx.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return errors.New("server.max_body_bytes must be non-negative")
	}
	for _, ext := range cfg.API.SupportedExtensions {
		if strings.TrimSpace(ext) == "" || strings.ContainsAny(ext, " \t\"") {
			return fmt.Errorf("api.supported_extensions: invalid extension uri %q", ext)
		}
	}
	return nil
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
