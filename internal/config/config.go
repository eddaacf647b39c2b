package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/draftform/internal/errors"
)

const (
	// JSONFileName is the name of the JSON configuration file.
	JSONFileName = "draftform.json"

	// YAMLFileName is the name of the YAML configuration file.
	YAMLFileName = "draftform.yaml"

	// DefaultAddr is the default listen address of the admin server.
	DefaultAddr = ":8080"

	// DefaultSQLitePath is the default database file of the sqlite backend.
	DefaultSQLitePath = "draftform.db"

	// DefaultDraftTTL is how long an untouched shared draft is kept.
	DefaultDraftTTL = 24 * time.Hour

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "draftform"
)

// Environment variables that override file values.
const (
	EnvAPIURL = "DRAFTFORM_API_URL"
	EnvAddr   = "DRAFTFORM_ADDR"
)

// Drafts backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Config represents the complete draftform configuration.
type Config struct {
	// Server contains admin HTTP server settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// API contains the entity creation API settings.
	API APIConfig `json:"api" yaml:"api"`

	// Drafts contains shared draft storage settings.
	Drafts DraftsConfig `json:"drafts" yaml:"drafts"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Log contains logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains admin HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// ReadTimeout bounds reading a request.
	ReadTimeout Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`

	// WriteTimeout bounds writing a response and each live-update write.
	WriteTimeout Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
}

// APIConfig contains the entity creation API settings.
type APIConfig struct {
	// BaseURL is the API root; records are posted to BaseURL/<resource>.
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`

	// Token is sent as a bearer token when set.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Timeout bounds a create call.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DraftsConfig contains shared draft storage settings.
type DraftsConfig struct {
	// Backend is "memory", "sqlite" or "s3".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string `json:"sqlitePath,omitempty" yaml:"sqlitePath,omitempty"`

	// Table overrides the drafts table name.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`

	// TTL is how long an untouched draft is kept.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`

	// Prefix namespaces draft keys in the backend.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// S3Config configures the s3 drafts backend. Credentials are read from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled serves /metrics and records collectors.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     Duration{10 * time.Second},
			WriteTimeout:    Duration{10 * time.Second},
			ShutdownTimeout: Duration{30 * time.Second},
		},
		API: APIConfig{
			Timeout: Duration{15 * time.Second},
		},
		Drafts: DraftsConfig{
			Backend:    BackendMemory,
			SQLitePath: DefaultSQLitePath,
			TTL:        Duration{DefaultDraftTTL},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromDir reads draftform.json, or draftform.yaml if there is no JSON
// file, from dir.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{JSONFileName, YAMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, errors.New("E100").
		WithDetail("No " + JSONFileName + " or " + YAMLFileName + " found in " + dir).
		WithSuggestion("Run 'draftform config init' to write a default config")
}

// Load reads configuration from path. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON. Environment overrides are applied
// after parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = decodeYAML(path, data, cfg)
	} else {
		err = decodeJSON(path, data, cfg)
	}
	if err != nil {
		return nil, err
	}

	cfg.configPath = path
	cfg.ApplyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decodeJSON(path string, data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)
	if err == nil {
		return nil
	}

	e := errors.New("E101").
		Wrap(err).
		WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	var offset int64 = -1
	switch se := err.(type) {
	case *json.SyntaxError:
		offset = se.Offset
	case *json.UnmarshalTypeError:
		offset = se.Offset
	}
	if offset >= 0 {
		line, col := position(data, offset)
		e.WithLocation(path, line, col)
	}
	return e
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err == nil || err == io.EOF {
		return nil
	}

	e := errors.New("E101").
		Wrap(err).
		WithSuggestion("Check that " + filepath.Base(path) + " is valid YAML")
	var line int
	if _, scanErr := fmt.Sscanf(yamlLine(err.Error()), "line %d", &line); scanErr == nil && line > 0 {
		e.WithLocation(path, line, 0)
	}
	return e
}

// yamlLine returns the "line N" part of a yaml.v3 error message.
func yamlLine(msg string) string {
	if i := strings.Index(msg, "line "); i >= 0 {
		return msg[i:]
	}
	return ""
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col = 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// ApplyEnv overrides file values from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && strings.TrimSpace(v) != "" {
		c.API.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvAddr); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = strings.TrimSpace(v)
	}
}

// applyDefaults fills in default values for fields a file set to empty.
func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Drafts.Backend == "" {
		c.Drafts.Backend = d.Drafts.Backend
	}
	if c.Drafts.SQLitePath == "" {
		c.Drafts.SQLitePath = d.Drafts.SQLitePath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Drafts.Backend {
	case BackendMemory, BackendSQLite, BackendS3:
	default:
		return errors.New("E103").
			WithDetail(fmt.Sprintf("drafts.backend is %q", c.Drafts.Backend)).
			WithExample(`"drafts": {"backend": "sqlite", "sqlitePath": "draftform.db"}`)
	}
	if c.Drafts.Backend == BackendSQLite && strings.TrimSpace(c.Drafts.SQLitePath) == "" {
		return errors.New("E102").WithDetail("drafts.sqlitePath is required for the sqlite backend")
	}
	if c.Drafts.Backend == BackendS3 && (c.Drafts.S3.Bucket == "" || c.Drafts.S3.Region == "") {
		return errors.New("E102").WithDetail("drafts.s3.bucket and drafts.s3.region are required for the s3 backend")
	}
	if c.Drafts.TTL.Duration <= 0 {
		return errors.New("E102").WithDetail("drafts.ttl must be positive")
	}
	for name, d := range map[string]Duration{
		"server.readTimeout":     c.Server.ReadTimeout,
		"server.writeTimeout":    c.Server.WriteTimeout,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"api.timeout":            c.API.Timeout,
	} {
		if d.Duration < 0 {
			return errors.New("E102").WithDetail(name + " must not be negative")
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New("E102").Wrap(err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E102").WithDetail(fmt.Sprintf("log.format is %q, want text or json", c.Log.Format))
	}
	return nil
}

// RequireAPI reports an error when no API base URL is configured.
func (c *Config) RequireAPI() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("E160")
	}
	return nil
}

// SaveTo writes the configuration to path, as YAML or JSON by extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E101").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// SQLitePath returns the sqlite database path, relative paths resolved
// against the config file's directory.
func (c *Config) SQLitePath() string {
	path := c.Drafts.SQLitePath
	if filepath.IsAbs(path) || c.configPath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(c.configPath), path)
}

// NewLogger builds the process logger.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
