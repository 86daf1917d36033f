// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，由 Init 填充；新代码优先通过参数传递 *Config。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	AIService     AIServiceConfig     `mapstructure:"ai_service"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	HuggingFace   HuggingFaceConfig   `mapstructure:"huggingface"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Search        SearchConfig        `mapstructure:"search"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	CORS          CORSConfig          `mapstructure:"cors"`
}

// ServerConfig 存储 API 服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AIServiceConfig 同时描述 AI 服务自身的监听端口和 API 服务器访问它的方式。
type AIServiceConfig struct {
	Port    string        `mapstructure:"port"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string       `mapstructure:"driver"` // mysql | sqlite
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SQLiteConfig 仅用于本地开发和 catalogctl。
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Enabled=false 时搜索记录直接写库。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，用于聊天记录导出归档。
type MinIOConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	LinkExpiry      time.Duration `mapstructure:"link_expiry"`
}

// OpenAIConfig 存储 OpenAI 适配器的配置。APIKey 为空即视为未启用。
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// HuggingFaceConfig 存储 HuggingFace Inference API 的配置。
type HuggingFaceConfig struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	ClassificationModel string        `mapstructure:"classification_model"`
	GenerationModel     string        `mapstructure:"generation_model"`
	MaxNewTokens        int           `mapstructure:"max_new_tokens"`
	Temperature         float64       `mapstructure:"temperature"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// CacheConfig 控制 AI 响应缓存。
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SearchConfig 选择检索后端。
type SearchConfig struct {
	Backend      string `mapstructure:"backend"` // sql | elasticsearch
	DefaultLimit int    `mapstructure:"default_limit"`
	MaxLimit     int    `mapstructure:"max_limit"`
}

// RateLimitConfig 每分钟请求上限。
type RateLimitConfig struct {
	ChatPerMinute int `mapstructure:"chat_per_minute"`
	APIPerMinute  int `mapstructure:"api_per_minute"`
}

// CORSConfig 跨域设置。
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.mode", "release")
	v.SetDefault("ai_service.port", "8001")
	v.SetDefault("ai_service.base_url", "http://localhost:8001")
	v.SetDefault("ai_service.timeout", 30*time.Second)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.sqlite.path", "matesl.db")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "search-events")
	v.SetDefault("kafka.group_id", "matesl-search-history")
	v.SetDefault("elasticsearch.index_name", "procedures")
	v.SetDefault("minio.bucket_name", "chat-exports")
	v.SetDefault("minio.link_expiry", 15*time.Minute)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4")
	v.SetDefault("openai.max_tokens", 200)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("huggingface.api_key", "")
	v.SetDefault("huggingface.base_url", "https://api-inference.huggingface.co/models")
	v.SetDefault("huggingface.classification_model", "facebook/bart-large-mnli")
	v.SetDefault("huggingface.generation_model", "microsoft/DialoGPT-medium")
	v.SetDefault("huggingface.max_new_tokens", 150)
	v.SetDefault("huggingface.temperature", 0.7)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("search.backend", "sql")
	v.SetDefault("search.default_limit", 10)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("ratelimit.chat_per_minute", 50)
	v.SetDefault("ratelimit.api_per_minute", 100)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
}

// Load 读取 .env（可选）和 YAML 配置文件，环境变量优先，例如 OPENAI_API_KEY 覆盖 openai.api_key。
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Init 初始化配置加载并写入 Conf，失败时直接 panic。
func Init(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
	return cfg
}
