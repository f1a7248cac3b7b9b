package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Clone    CloneConfig    `mapstructure:"clone"`
	AI       AIConfig       `mapstructure:"ai"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql or sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// QueueConfig names the three durable queues. The names are configuration,
// not protocol: the payload shape is the contract between stages.
type QueueConfig struct {
	RepoProcessingQueue string `mapstructure:"repo_processing_queue"`
	AIAnalysisQueue     string `mapstructure:"ai_analysis_queue"`
	ResultQueue         string `mapstructure:"result_queue"`
	MaxWorkers          int    `mapstructure:"max_workers"`
	JobTimeoutMinutes   int    `mapstructure:"job_timeout_minutes"`
}

type CloneConfig struct {
	TempDir        string `mapstructure:"temp_dir"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	ModelName string `mapstructure:"model_name"`
}

type CleanupConfig struct {
	ExpireHours int `mapstructure:"expire_hours"`
}

func Load(configPath string) (*Config, error) {
	// Prefer config.local.yaml when present (real secrets, not committed).
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("database.driver", "mysql")
	viper.SetDefault("database.sqlite_path", "gitinsight.db")
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("queue.repo_processing_queue", "gitinsight_repo_processing")
	viper.SetDefault("queue.ai_analysis_queue", "gitinsight_ai_analysis")
	viper.SetDefault("queue.result_queue", "gitinsight_results")
	viper.SetDefault("queue.max_workers", 4)
	viper.SetDefault("queue.job_timeout_minutes", 10)
	viper.SetDefault("clone.temp_dir", filepath.Join(os.TempDir(), "gitinsight_clones"))
	viper.SetDefault("clone.timeout_seconds", 120)
	viper.SetDefault("ai.model_name", "gemini-1.5-flash-latest")
	viper.SetDefault("cleanup.expire_hours", 1)
}
