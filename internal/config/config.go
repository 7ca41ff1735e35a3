package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration. It is built once in main and
// injected into the store, the adapters, and the pipeline at construction;
// business logic never reads the environment directly.
type Config struct {
	Port      string
	DBPath    string
	UploadDir string

	// External process collaborators.
	PythonBin  string
	AIDir      string
	FFmpegBin  string
	FFprobeBin string

	// Remote semantic analysis service.
	SemanticURL   string
	SemanticKey   string
	SemanticModel string

	// Bounded waits for external collaborators. The orchestrator enforces
	// these; a hung external call fails the stage instead of wedging the run.
	IngestionTimeout  time.Duration
	TranscribeTimeout time.Duration
	SemanticTimeout   time.Duration

	QueueSize   int
	WorkerCount int
	RunTimeout  time.Duration
}

type fileConfig struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	UploadDir string `yaml:"upload_dir"`

	PythonBin  string `yaml:"python_bin"`
	AIDir      string `yaml:"ai_dir"`
	FFmpegBin  string `yaml:"ffmpeg_bin"`
	FFprobeBin string `yaml:"ffprobe_bin"`

	SemanticURL   string `yaml:"semantic_url"`
	SemanticModel string `yaml:"semantic_model"`

	IngestionTimeoutSec  int `yaml:"ingestion_timeout_sec"`
	TranscribeTimeoutSec int `yaml:"transcribe_timeout_sec"`
	SemanticTimeoutSec   int `yaml:"semantic_timeout_sec"`

	QueueSize     int `yaml:"queue_size"`
	WorkerCount   int `yaml:"worker_count"`
	RunTimeoutSec int `yaml:"run_timeout_sec"`
}

const (
	defaultPort              = "8080"
	defaultDBPath            = "finecho.db"
	defaultUploadDir         = "uploads"
	defaultQueueSize         = 64
	defaultWorkerCount       = 2
	defaultIngestionTimeout  = 60 * time.Second
	defaultTranscribeTimeout = 10 * time.Minute
	defaultSemanticTimeout   = 20 * time.Second
	defaultRunTimeout        = 15 * time.Minute
)

// Load builds the config from the environment, with an optional YAML file
// (CONFIG_FILE) applied first so env vars win.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              defaultPort,
		DBPath:            defaultDBPath,
		UploadDir:         defaultUploadDir,
		FFmpegBin:         "ffmpeg",
		FFprobeBin:        "ffprobe",
		IngestionTimeout:  defaultIngestionTimeout,
		TranscribeTimeout: defaultTranscribeTimeout,
		SemanticTimeout:   defaultSemanticTimeout,
		QueueSize:         defaultQueueSize,
		WorkerCount:       defaultWorkerCount,
		RunTimeout:        defaultRunTimeout,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	setStr(&cfg.Port, "PORT")
	setStr(&cfg.DBPath, "DB_PATH")
	setStr(&cfg.UploadDir, "UPLOAD_DIR")
	setStr(&cfg.PythonBin, "PYTHON_PATH")
	setStr(&cfg.AIDir, "AI_DIR")
	setStr(&cfg.FFmpegBin, "FFMPEG_PATH")
	setStr(&cfg.FFprobeBin, "FFPROBE_PATH")
	setStr(&cfg.SemanticURL, "SEMANTIC_URL")
	setStr(&cfg.SemanticKey, "SEMANTIC_API_KEY")
	setStr(&cfg.SemanticModel, "SEMANTIC_MODEL")
	setDur(&cfg.IngestionTimeout, "INGESTION_TIMEOUT_SEC")
	setDur(&cfg.TranscribeTimeout, "TRANSCRIBE_TIMEOUT_SEC")
	setDur(&cfg.SemanticTimeout, "SEMANTIC_TIMEOUT_SEC")
	setDur(&cfg.RunTimeout, "RUN_TIMEOUT_SEC")
	setInt(&cfg.QueueSize, "QUEUE_SIZE")
	setInt(&cfg.WorkerCount, "WORKER_COUNT")

	if cfg.QueueSize < 1 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = defaultWorkerCount
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.UploadDir != "" {
		c.UploadDir = fc.UploadDir
	}
	if fc.PythonBin != "" {
		c.PythonBin = fc.PythonBin
	}
	if fc.AIDir != "" {
		c.AIDir = fc.AIDir
	}
	if fc.FFmpegBin != "" {
		c.FFmpegBin = fc.FFmpegBin
	}
	if fc.FFprobeBin != "" {
		c.FFprobeBin = fc.FFprobeBin
	}
	if fc.SemanticURL != "" {
		c.SemanticURL = fc.SemanticURL
	}
	if fc.SemanticModel != "" {
		c.SemanticModel = fc.SemanticModel
	}
	if fc.IngestionTimeoutSec > 0 {
		c.IngestionTimeout = time.Duration(fc.IngestionTimeoutSec) * time.Second
	}
	if fc.TranscribeTimeoutSec > 0 {
		c.TranscribeTimeout = time.Duration(fc.TranscribeTimeoutSec) * time.Second
	}
	if fc.SemanticTimeoutSec > 0 {
		c.SemanticTimeout = time.Duration(fc.SemanticTimeoutSec) * time.Second
	}
	if fc.RunTimeoutSec > 0 {
		c.RunTimeout = time.Duration(fc.RunTimeoutSec) * time.Second
	}
	if fc.QueueSize > 0 {
		c.QueueSize = fc.QueueSize
	}
	if fc.WorkerCount > 0 {
		c.WorkerCount = fc.WorkerCount
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDur(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = time.Duration(n) * time.Second
		}
	}
}
