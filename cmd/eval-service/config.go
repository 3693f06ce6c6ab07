package main

import (
	"fmt"
	"os"
	"time"

	"codeval/internal/eval/cache"
	"codeval/internal/eval/catalog"
	"codeval/internal/eval/harness"
	"codeval/internal/eval/repository"
	"codeval/internal/eval/sandbox/executor"
	"codeval/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8086"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultPoolSize        = 8
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// SandboxConfig holds sandbox executor settings.
type SandboxConfig struct {
	ScratchRoot    string        `yaml:"scratchRoot"`
	HelperPath     string        `yaml:"helperPath"`
	OutputMaxBytes int64         `yaml:"outputMaxBytes"`
	CompileTimeout time.Duration `yaml:"compileTimeout"`
	KillGrace      time.Duration `yaml:"killGrace"`
	SeccompProfile string        `yaml:"seccompProfile"`
	EnableCgroup   bool          `yaml:"enableCgroup"`
	CgroupRoot     string        `yaml:"cgroupRoot"`
}

// WorkerConfig holds the process-wide execution cap.
type WorkerConfig struct {
	PoolSize int `yaml:"poolSize"`
}

// CatalogConfig selects where problem suites come from.
type CatalogConfig struct {
	// Mode is "local" or "minio".
	Mode     string              `yaml:"mode"`
	LocalDir string              `yaml:"localDir"`
	MinIO    catalog.MinIOConfig `yaml:"minio"`
}

// AppConfig holds eval-service config.
type AppConfig struct {
	Server  ServerConfig           `yaml:"server"`
	Logger  logger.Config          `yaml:"logger"`
	Sandbox SandboxConfig          `yaml:"sandbox"`
	Worker  WorkerConfig           `yaml:"worker"`
	Harness harness.Config         `yaml:"harness"`
	Catalog CatalogConfig          `yaml:"catalog"`
	Redis   cache.RedisConfig      `yaml:"redis"`
	Kafka   repository.KafkaConfig `yaml:"kafka"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = defaultPoolSize
	}
	switch cfg.Catalog.Mode {
	case "", "local":
		cfg.Catalog.Mode = "local"
		if cfg.Catalog.LocalDir == "" {
			cfg.Catalog.LocalDir = "problems"
		}
	case "minio":
		if cfg.Catalog.MinIO.Endpoint == "" {
			return nil, fmt.Errorf("catalog.minio.endpoint is required in minio mode")
		}
	default:
		return nil, fmt.Errorf("unknown catalog mode %q", cfg.Catalog.Mode)
	}
	return &cfg, nil
}

func (s SandboxConfig) toExecutorConfig() executor.Config {
	return executor.Config{
		ScratchRoot:    s.ScratchRoot,
		OutputMaxBytes: s.OutputMaxBytes,
		KillGrace:      s.KillGrace,
		CompileTimeout: s.CompileTimeout,
		HelperPath:     s.HelperPath,
		SeccompProfile: s.SeccompProfile,
		EnableCgroup:   s.EnableCgroup,
		CgroupRoot:     s.CgroupRoot,
	}
}
