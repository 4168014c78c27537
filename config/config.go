package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	QueueRedis  = "redis"
	QueueSQLite = "sqlite"
	QueueMemory = "memory"

	StorageMinio = "minio"
	StorageLocal = "local"
)

// Tools holds the paths of the external programs the handlers shell out to.
type Tools struct {
	Convert           string
	Identify          string
	Ghostscript       string
	DocumentConverter string
	FFmpeg            string
	FFprobe           string
}

type Config struct {
	QueueBackend  string
	RedisURL      string
	RedisQueueKey string
	SQLitePath    string

	StorageBackend  string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	InputBucket     string
	OutputBucket    string
	LocalStorageDir string

	DataDir      string
	Workers      int
	ReceiveWait  time.Duration
	RetryBackoff time.Duration
	MaxRetries   int

	PipelineID string
	Presets    map[string]string

	Tools Tools

	APIAddr      string
	APITokenHash string
	LogLevel     string
}

// fileConfig mirrors the optional YAML overlay named by CONFIG_FILE.
type fileConfig struct {
	Queue struct {
		Backend  string `yaml:"backend"`
		RedisURL string `yaml:"redis_url"`
		Key      string `yaml:"key"`
		SQLite   string `yaml:"sqlite_path"`
	} `yaml:"queue"`
	Storage struct {
		Backend      string `yaml:"backend"`
		Endpoint     string `yaml:"endpoint"`
		AccessKey    string `yaml:"access_key"`
		SecretKey    string `yaml:"secret_key"`
		UseSSL       *bool  `yaml:"use_ssl"`
		InputBucket  string `yaml:"input_bucket"`
		OutputBucket string `yaml:"output_bucket"`
		LocalDir     string `yaml:"local_dir"`
	} `yaml:"storage"`
	Transcoder struct {
		PipelineID string            `yaml:"pipeline_id"`
		Presets    map[string]string `yaml:"presets"`
	} `yaml:"transcoder"`
	Tools struct {
		Convert           string `yaml:"convert"`
		Identify          string `yaml:"identify"`
		Ghostscript       string `yaml:"ghostscript"`
		DocumentConverter string `yaml:"document_converter"`
		FFmpeg            string `yaml:"ffmpeg"`
		FFprobe           string `yaml:"ffprobe"`
	} `yaml:"tools"`
	Worker struct {
		DataDir      string `yaml:"data_dir"`
		Workers      int    `yaml:"workers"`
		ReceiveWait  string `yaml:"receive_wait"`
		RetryBackoff string `yaml:"retry_backoff"`
		MaxRetries   int    `yaml:"max_retries"`
	} `yaml:"worker"`
	API struct {
		Addr      string `yaml:"addr"`
		TokenHash string `yaml:"token_hash"`
	} `yaml:"api"`
	LogLevel string `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		QueueBackend:   QueueRedis,
		RedisURL:       "redis://127.0.0.1:6379/0",
		RedisQueueKey:  "docstruct:jobs",
		SQLitePath:     "/data/queue.db",
		StorageBackend: StorageMinio,
		MinioEndpoint:  "127.0.0.1:9000",
		InputBucket:    "docstruct-input",
		OutputBucket:   "docstruct-output",
		DataDir:        "/data/scratch",
		Workers:        1,
		ReceiveWait:    20 * time.Second,
		RetryBackoff:   5 * time.Second,
		MaxRetries:     3,
		PipelineID:     "local",
		Presets: map[string]string{
			"webm": "webm-av1",
			"mp4":  "mp4-h264",
			"mp3":  "mp3-320k",
			"ogg":  "ogg-opus",
		},
		Tools: Tools{
			Convert:           "convert",
			Identify:          "identify",
			Ghostscript:       "gs",
			DocumentConverter: "soffice",
			FFmpeg:            "ffmpeg",
			FFprobe:           "ffprobe",
		},
		APIAddr:  ":7890",
		LogLevel: "info",
	}
}

// Load resolves configuration in priority order: defaults, then the YAML
// file named by CONFIG_FILE, then the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		if err := cfg.applyFile(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", file, err)
	}

	setString(&c.QueueBackend, fc.Queue.Backend)
	setString(&c.RedisURL, fc.Queue.RedisURL)
	setString(&c.RedisQueueKey, fc.Queue.Key)
	setString(&c.SQLitePath, fc.Queue.SQLite)

	setString(&c.StorageBackend, fc.Storage.Backend)
	setString(&c.MinioEndpoint, fc.Storage.Endpoint)
	setString(&c.MinioAccessKey, fc.Storage.AccessKey)
	setString(&c.MinioSecretKey, fc.Storage.SecretKey)
	if fc.Storage.UseSSL != nil {
		c.MinioUseSSL = *fc.Storage.UseSSL
	}
	setString(&c.InputBucket, fc.Storage.InputBucket)
	setString(&c.OutputBucket, fc.Storage.OutputBucket)
	setString(&c.LocalStorageDir, fc.Storage.LocalDir)

	setString(&c.PipelineID, fc.Transcoder.PipelineID)
	for format, preset := range fc.Transcoder.Presets {
		c.Presets[strings.ToLower(format)] = preset
	}

	setString(&c.Tools.Convert, fc.Tools.Convert)
	setString(&c.Tools.Identify, fc.Tools.Identify)
	setString(&c.Tools.Ghostscript, fc.Tools.Ghostscript)
	setString(&c.Tools.DocumentConverter, fc.Tools.DocumentConverter)
	setString(&c.Tools.FFmpeg, fc.Tools.FFmpeg)
	setString(&c.Tools.FFprobe, fc.Tools.FFprobe)

	setString(&c.DataDir, fc.Worker.DataDir)
	if fc.Worker.Workers != 0 {
		c.Workers = fc.Worker.Workers
	}
	if fc.Worker.ReceiveWait != "" {
		d, err := time.ParseDuration(fc.Worker.ReceiveWait)
		if err != nil {
			return fmt.Errorf("invalid worker.receive_wait: %w", err)
		}
		c.ReceiveWait = d
	}
	if fc.Worker.RetryBackoff != "" {
		d, err := time.ParseDuration(fc.Worker.RetryBackoff)
		if err != nil {
			return fmt.Errorf("invalid worker.retry_backoff: %w", err)
		}
		c.RetryBackoff = d
	}
	if fc.Worker.MaxRetries != 0 {
		c.MaxRetries = fc.Worker.MaxRetries
	}

	setString(&c.APIAddr, fc.API.Addr)
	setString(&c.APITokenHash, fc.API.TokenHash)
	setString(&c.LogLevel, fc.LogLevel)
	return nil
}

func (c *Config) applyEnv() error {
	c.QueueBackend = getEnv("QUEUE_BACKEND", c.QueueBackend)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RedisQueueKey = getEnv("REDIS_QUEUE_KEY", c.RedisQueueKey)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.MinioEndpoint = getEnv("MINIO_ENDPOINT", c.MinioEndpoint)
	c.MinioAccessKey = getEnv("MINIO_ACCESS_KEY", c.MinioAccessKey)
	c.MinioSecretKey = getEnv("MINIO_SECRET_KEY", c.MinioSecretKey)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MINIO_USE_SSL: %w", err)
		}
		c.MinioUseSSL = useSSL
	}
	c.InputBucket = getEnv("INPUT_BUCKET", c.InputBucket)
	c.OutputBucket = getEnv("OUTPUT_BUCKET", c.OutputBucket)
	c.LocalStorageDir = getEnv("LOCAL_STORAGE_DIR", c.LocalStorageDir)

	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WORKERS: %w", err)
		}
		c.Workers = n
	}

	var err error
	if c.ReceiveWait, err = getEnvDuration("RECEIVE_WAIT", c.ReceiveWait); err != nil {
		return err
	}
	if c.RetryBackoff, err = getEnvDuration("RETRY_BACKOFF", c.RetryBackoff); err != nil {
		return err
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}

	c.PipelineID = getEnv("TRANSCODER_PIPELINE_ID", c.PipelineID)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, "PRESET_") {
			continue
		}
		c.Presets[strings.ToLower(strings.TrimPrefix(name, "PRESET_"))] = value
	}

	c.Tools.Convert = getEnv("CONVERT_PATH", c.Tools.Convert)
	c.Tools.Identify = getEnv("IDENTIFY_PATH", c.Tools.Identify)
	c.Tools.Ghostscript = getEnv("GHOSTSCRIPT_PATH", c.Tools.Ghostscript)
	c.Tools.DocumentConverter = getEnv("DOCUMENT_CONVERTER_PATH", c.Tools.DocumentConverter)
	c.Tools.FFmpeg = getEnv("FFMPEG_PATH", c.Tools.FFmpeg)
	c.Tools.FFprobe = getEnv("FFPROBE_PATH", c.Tools.FFprobe)

	c.APIAddr = getEnv("API_ADDR", c.APIAddr)
	c.APITokenHash = getEnv("API_TOKEN_HASH", c.APITokenHash)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.QueueBackend {
	case QueueRedis:
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("REDIS_URL is required for the redis queue"))
		}
	case QueueSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("SQLITE_PATH is required for the sqlite queue"))
		}
	case QueueMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid QUEUE_BACKEND %q", c.QueueBackend))
	}

	switch c.StorageBackend {
	case StorageMinio:
		if c.MinioEndpoint == "" {
			errs = append(errs, fmt.Errorf("MINIO_ENDPOINT is required for minio storage"))
		}
	case StorageLocal:
		if c.LocalStorageDir == "" {
			errs = append(errs, fmt.Errorf("LOCAL_STORAGE_DIR is required for local storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.InputBucket == "" || c.OutputBucket == "" {
		errs = append(errs, fmt.Errorf("INPUT_BUCKET and OUTPUT_BUCKET are required"))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("DATA_DIR is required"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("WORKERS must be positive"))
	}
	if c.ReceiveWait <= 0 {
		errs = append(errs, fmt.Errorf("RECEIVE_WAIT must be positive"))
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("RETRY_BACKOFF must not be negative"))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must be positive"))
	}
	return errors.Join(errs...)
}

// PresetFor returns the transcoder preset configured for an output format.
// Values may be full resource names; only the last path element is used.
func (c *Config) PresetFor(format string) (string, bool) {
	preset, ok := c.Presets[strings.ToLower(format)]
	if !ok || preset == "" {
		return "", false
	}
	return path.Base(preset), true
}

// RequiredTools lists the external programs by the name they are looked up
// under.
func (c *Config) RequiredTools() map[string]string {
	return map[string]string{
		"convert":            c.Tools.Convert,
		"identify":           c.Tools.Identify,
		"ghostscript":        c.Tools.Ghostscript,
		"document converter": c.Tools.DocumentConverter,
		"ffmpeg":             c.Tools.FFmpeg,
		"ffprobe":            c.Tools.FFprobe,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is neither a duration nor seconds", key, v)
	}
	return time.Duration(seconds) * time.Second, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
