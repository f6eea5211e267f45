// Package config loads pellet settings from defaults, an optional YAML file
// and PELLET_* environment variables, in that order of precedence.
//
// Example Usage:
//
//	cfg, err := config.Load("pellet.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	logger, closeLog, err := config.NewLogger(cfg.Logging)
//
// Environment Variables:
//
// Classifier:
//   - PELLET_MULTI_THREADED=true
//   - PELLET_LISTEN_CHANGES=true
//   - PELLET_ENTAILMENT_CACHE_SIZE=10000
//   - PELLET_ENTAILMENT_CACHE_TTL=0 (no expiry)
//   - PELLET_MAX_COMPLEMENT_RETRIES=16
//
// Storage and knowledge base:
//   - PELLET_DATA_DIR="./data"
//   - PELLET_IN_MEMORY=false
//   - PELLET_SYNC_WRITES=false
//   - PELLET_SNAPSHOT_NAME="default"
//   - PELLET_KB_PATH="./data/kb.db"
//   - PELLET_KB_FILE=""
//
// Logging, metrics and runtime:
//   - PELLET_LOG_LEVEL=INFO
//   - PELLET_LOG_FORMAT=text
//   - PELLET_LOG_OUTPUT=stderr
//   - PELLET_METRICS_ENABLED=false
//   - PELLET_METRICS_NAMESPACE=pellet
//   - PELLET_MEMORY_LIMIT=0 (e.g. "2GB")
//   - PELLET_GC_PERCENT=100
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate and wraps every validation
// failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all pellet settings.
//
// Configuration is organized into sections:
//   - Classifier: incremental classification tuning
//   - Storage: the snapshot store
//   - KnowledgeBase: where statements come from
//   - Logging, Metrics and Memory: process concerns
type Config struct {
	Classifier    ClassifierConfig    `yaml:"classifier"`
	Storage       StorageConfig       `yaml:"storage"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Memory        MemoryConfig        `yaml:"memory"`
}

// ClassifierConfig holds the classifier settings.
type ClassifierConfig struct {
	// MultiThreaded runs hierarchy building and module extraction of a full
	// classification concurrently.
	MultiThreaded bool `yaml:"multi_threaded"`
	// ListenChanges subscribes the classifier to ontology edits.
	ListenChanges bool `yaml:"listen_changes"`
	// EntailmentCacheSize bounds cached entailment answers (0 disables).
	EntailmentCacheSize int `yaml:"entailment_cache_size" validate:"gte=0"`
	// EntailmentCacheTTL expires cached answers (0 = never).
	EntailmentCacheTTL time.Duration `yaml:"entailment_cache_ttl" validate:"gte=0"`
	// MaxComplementRetries bounds identifier draws for anonymous complements.
	MaxComplementRetries int `yaml:"max_complement_retries" validate:"gte=1,lte=1024"`
}

// StorageConfig holds the snapshot store settings.
type StorageConfig struct {
	// DataDir is the badger directory. Required unless InMemory.
	DataDir string `yaml:"data_dir"`
	// InMemory keeps snapshots in memory only.
	InMemory bool `yaml:"in_memory"`
	// SyncWrites fsyncs every snapshot write.
	SyncWrites bool `yaml:"sync_writes"`
	// SnapshotName is the name used when none is given.
	SnapshotName string `yaml:"snapshot_name" validate:"required,max=128"`
}

// KnowledgeBaseConfig says where statements are read from.
type KnowledgeBaseConfig struct {
	// Path of the sqlite statement store.
	Path string `yaml:"path"`
	// File of functional-syntax statements, used instead of the store when
	// set.
	File string `yaml:"file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (DEBUG, INFO, WARN, ERROR)
	Level string `yaml:"level" validate:"oneof=DEBUG INFO WARN ERROR"`
	// Format (json, text)
	Format string `yaml:"format" validate:"oneof=json text"`
	// Output path (stdout, stderr, or file path)
	Output string `yaml:"output" validate:"required"`
}

// MetricsConfig holds prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"omitempty,metricname"`
	// Addr serves /metrics while a long-running command is up.
	Addr string `yaml:"addr"`
}

// MemoryConfig holds Go runtime memory tuning.
type MemoryConfig struct {
	// RuntimeLimit is the soft memory limit (GOMEMLIMIT) in bytes
	// 0 = unlimited (Go manages automatically)
	RuntimeLimit int64 `yaml:"-" validate:"gte=0"`
	// RuntimeLimitStr is the human-readable form (e.g., "2GB", "512MB")
	RuntimeLimitStr string `yaml:"runtime_limit"`
	// GCPercent controls GC aggressiveness (GOGC)
	// 100 = default, lower = more aggressive, -1 = off
	GCPercent int `yaml:"gc_percent" validate:"gte=-1"`
}

var (
	validate       = validator.New()
	metricNameExpr = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

func init() {
	_ = validate.RegisterValidation("metricname", func(fl validator.FieldLevel) bool {
		return metricNameExpr.MatchString(fl.Field().String())
	})
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			MultiThreaded:        true,
			ListenChanges:        true,
			EntailmentCacheSize:  10000,
			MaxComplementRetries: 16,
		},
		Storage: StorageConfig{
			DataDir:      "./data",
			SnapshotName: "default",
		},
		KnowledgeBase: KnowledgeBaseConfig{
			Path: "./data/kb.db",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Namespace: "pellet",
			Addr:      "127.0.0.1:9464",
		},
		Memory: MemoryConfig{
			RuntimeLimitStr: "0",
			GCPercent:       100,
		},
	}
}

// LoadFromEnv returns the defaults overlaid with PELLET_* variables.
// Unparseable values keep the previous setting.
func LoadFromEnv() *Config {
	return Default().ApplyEnv()
}

// LoadFile returns the defaults overlaid with the YAML file at path. Keys
// absent from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Load reads the YAML file at path, if path is not empty, and then applies
// the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv(), nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return cfg.ApplyEnv(), nil
}

// ApplyEnv overlays PELLET_* variables onto c and returns it.
func (c *Config) ApplyEnv() *Config {
	c.Classifier.MultiThreaded = getEnvBool("PELLET_MULTI_THREADED", c.Classifier.MultiThreaded)
	c.Classifier.ListenChanges = getEnvBool("PELLET_LISTEN_CHANGES", c.Classifier.ListenChanges)
	c.Classifier.EntailmentCacheSize = getEnvInt("PELLET_ENTAILMENT_CACHE_SIZE", c.Classifier.EntailmentCacheSize)
	c.Classifier.EntailmentCacheTTL = getEnvDuration("PELLET_ENTAILMENT_CACHE_TTL", c.Classifier.EntailmentCacheTTL)
	c.Classifier.MaxComplementRetries = getEnvInt("PELLET_MAX_COMPLEMENT_RETRIES", c.Classifier.MaxComplementRetries)

	c.Storage.DataDir = getEnv("PELLET_DATA_DIR", c.Storage.DataDir)
	c.Storage.InMemory = getEnvBool("PELLET_IN_MEMORY", c.Storage.InMemory)
	c.Storage.SyncWrites = getEnvBool("PELLET_SYNC_WRITES", c.Storage.SyncWrites)
	c.Storage.SnapshotName = getEnv("PELLET_SNAPSHOT_NAME", c.Storage.SnapshotName)

	c.KnowledgeBase.Path = getEnv("PELLET_KB_PATH", c.KnowledgeBase.Path)
	c.KnowledgeBase.File = getEnv("PELLET_KB_FILE", c.KnowledgeBase.File)

	c.Logging.Level = getEnv("PELLET_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("PELLET_LOG_FORMAT", c.Logging.Format)
	c.Logging.Output = getEnv("PELLET_LOG_OUTPUT", c.Logging.Output)

	c.Metrics.Enabled = getEnvBool("PELLET_METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Namespace = getEnv("PELLET_METRICS_NAMESPACE", c.Metrics.Namespace)
	c.Metrics.Addr = getEnv("PELLET_METRICS_ADDR", c.Metrics.Addr)

	c.Memory.RuntimeLimitStr = getEnv("PELLET_MEMORY_LIMIT", c.Memory.RuntimeLimitStr)
	c.Memory.GCPercent = getEnvInt("PELLET_GC_PERCENT", c.Memory.GCPercent)

	c.normalize()
	return c
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Memory.RuntimeLimit = parseMemorySize(c.Memory.RuntimeLimitStr)
}

// Validate checks field constraints and the settings that depend on each
// other. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("%w: storage needs a data directory unless in memory", ErrInvalidConfig)
	}
	if c.KnowledgeBase.Path == "" && c.KnowledgeBase.File == "" {
		return fmt.Errorf("%w: knowledge base needs a store path or a statements file", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("%w: metrics enabled without a namespace", ErrInvalidConfig)
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{MultiThreaded: %v, DataDir: %s, InMemory: %v, KB: %s, Log: %s/%s}",
		c.Classifier.MultiThreaded,
		c.Storage.DataDir, c.Storage.InMemory,
		c.knowledgeBaseSource(),
		c.Logging.Level, c.Logging.Format,
	)
}

func (c *Config) knowledgeBaseSource() string {
	if c.KnowledgeBase.File != "" {
		return c.KnowledgeBase.File
	}
	return c.KnowledgeBase.Path
}

// NewLogger builds a slog logger for c. The returned close function releases
// the output file, if one was opened.
func NewLogger(c LoggingConfig) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, nil, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Level)
	}

	var (
		out      io.Writer
		closeOut = func() error { return nil }
	)
	switch c.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log output: %w", err)
		}
		out, closeOut = f, f.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch c.Format {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	default:
		_ = closeOut()
		return nil, nil, fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Format)
	}
	return slog.New(h), closeOut, nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

// sizeUnits maps size suffixes, largest first, to their byte multipliers.
var sizeUnits = []struct {
	suffix string
	bytes  int64
}{
	{"T", 1 << 40},
	{"G", 1 << 30},
	{"M", 1 << 20},
	{"K", 1 << 10},
}

// parseMemorySize reads sizes such as "512MB", "2g" or "4096". Empty, "0",
// "unlimited" and anything unparseable mean 0.
func parseMemorySize(s string) int64 {
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "B")
	if s == "" || s == "UNLIMITED" {
		return 0
	}
	mult := int64(1)
	for _, u := range sizeUnits {
		if n, ok := strings.CutSuffix(s, u.suffix); ok {
			s, mult = n, u.bytes
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n * mult
}

// FormatMemorySize renders a byte count with two decimals in the largest
// fitting unit.
func FormatMemorySize(n int64) string {
	for _, u := range sizeUnits {
		if n >= u.bytes {
			return fmt.Sprintf("%.2f %sB", float64(n)/float64(u.bytes), u.suffix)
		}
	}
	return fmt.Sprintf("%d B", n)
}

// ApplyRuntimeMemory applies the runtime memory settings to the Go runtime.
// Should be called early in main() before heavy allocations. It returns the
// previous GC percentage.
func (c *MemoryConfig) ApplyRuntimeMemory() int {
	if c.RuntimeLimit > 0 {
		debug.SetMemoryLimit(c.RuntimeLimit)
	}
	return debug.SetGCPercent(c.GCPercent)
}
