package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"5001"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"dopamine-breaker"`

	// 数据库配置，postgres 为默认，mysql 为原生产库，sqlite 用于本地开发
	DBDriver string `env:"DB_DRIVER" envDefault:"postgres"`

	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"dopamine_breaker"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`

	MySQLHost     string `env:"MYSQL_HOST" envDefault:"localhost"`
	MySQLPort     string `env:"MYSQL_PORT" envDefault:"3306"`
	MySQLUser     string `env:"MYSQL_USER" envDefault:"root"`
	MySQLPassword string `env:"MYSQL_PASSWORD" envDefault:""`
	MySQLDatabase string `env:"MYSQL_DB" envDefault:"dopamine_breaker"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"dopamine_breaker.db"`

	// 只读副本 DSN（逗号分隔），为空时不启用读写分离
	DBReplicaDSNs []string `env:"DB_REPLICA_DSNS" envSeparator:","`
	DBMaxIdle     int      `env:"DB_MAX_IDLE" envDefault:"10"`
	DBMaxOpen     int      `env:"DB_MAX_OPEN" envDefault:"50"`
	DBLogSQL      bool     `env:"DB_LOG_SQL" envDefault:"false"`

	// Redis 配置
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"dpb"`

	// RabbitMQ 配置
	RabbitMQEnabled  bool   `env:"RABBITMQ_ENABLED" envDefault:"true"`
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"1440"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 管理接口（手动生成每日任务）使用的静态令牌，为空时管理接口关闭
	AdminToken string `env:"ADMIN_TOKEN"`

	// Gemini 生成服务
	GeminiAPIKey         string        `env:"GEMINI_API_KEY"`
	GeminiModel          string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiEndpoint       string        `env:"GEMINI_ENDPOINT" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiTimeout        time.Duration `env:"GEMINI_TIMEOUT" envDefault:"60s"`
	GeminiCallsPerMinute int           `env:"GEMINI_CALLS_PER_MINUTE" envDefault:"6"`
	GeminiBreakerFails   int           `env:"GEMINI_BREAKER_FAILURES" envDefault:"3"`
	GeminiBreakerReset   time.Duration `env:"GEMINI_BREAKER_RESET" envDefault:"5m"`
	FallbackMissionsPath string        `env:"FALLBACK_MISSIONS_PATH"` // 为空使用内置的 fallback.yaml
	// 生成失败时是否改用固定任务集，关闭后失败的当天不会写入目录
	GeneratorFailSoft bool `env:"GENERATOR_FAIL_SOFT" envDefault:"true"`

	// 每日任务调度
	MissionTimezone   string `env:"MISSION_TIMEZONE" envDefault:"Local"`
	RefreshHour       int    `env:"REFRESH_HOUR" envDefault:"0"`
	RefreshMinute     int    `env:"REFRESH_MINUTE" envDefault:"1"`
	RefreshOnStartup  bool   `env:"REFRESH_ON_STARTUP" envDefault:"true"`
	CatalogCacheTTLMn int    `env:"CATALOG_CACHE_TTL_MINUTES" envDefault:"30"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`
	LoggerMaxSizeMB  int    `env:"LOGGER_MAX_SIZE_MB" envDefault:"100"`
	LoggerMaxBackups int    `env:"LOGGER_MAX_BACKUPS" envDefault:"7"`
	LoggerMaxAgeDays int    `env:"LOGGER_MAX_AGE_DAYS" envDefault:"30"`
	LoggerCompress   bool   `env:"LOGGER_COMPRESS" envDefault:"true"`

	// 链路追踪配置
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// 注册滑块验证：aliyun, none
	CaptchaProvider string `env:"CAPTCHA_PROVIDER" envDefault:"none"`
	CaptchaSceneID  string `env:"CAPTCHA_SCENE_ID"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.JWTSecret == "" {
		if Cfg.IsProduction() {
			log.Fatal("JWT_SECRET is required")
		}
		log.Printf("WARN: JWT_SECRET is not set, using an insecure development secret")
		Cfg.JWTSecret = "jwt-secret-key-for-dev"
	}

	switch Cfg.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		log.Fatalf("DB_DRIVER must be one of postgres, mysql, sqlite, got %q", Cfg.DBDriver)
	}

	if Cfg.RefreshHour < 0 || Cfg.RefreshHour > 23 || Cfg.RefreshMinute < 0 || Cfg.RefreshMinute > 59 {
		log.Fatalf("REFRESH_HOUR/REFRESH_MINUTE out of range: %02d:%02d", Cfg.RefreshHour, Cfg.RefreshMinute)
	}

	if _, err := Cfg.Location(); err != nil {
		log.Fatalf("MISSION_TIMEZONE is invalid: %v", err)
	}

	if Cfg.GeminiAPIKey == "" {
		log.Printf("WARN: GEMINI_API_KEY is not set, daily missions will use the fallback set")
	}

	if Cfg.AdminToken == "" {
		log.Printf("WARN: ADMIN_TOKEN is not set, manual daily generation endpoint is disabled")
	}
}

// GetDSN 返回当前驱动的连接串
func (c *Config) GetDSN() string {
	switch c.DBDriver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLPort, c.MySQLDatabase)
	case "sqlite":
		return c.SQLitePath
	default:
		return "host=" + c.PostgreSQLHost +
			" port=" + c.PostgreSQLPort +
			" user=" + c.PostgreSQLUser +
			" password=" + c.PostgreSQLPassword +
			" dbname=" + c.PostgreSQLDatabase +
			" sslmode=" + c.PostgreSQLSSLMode +
			" search_path=" + c.PostgreSQLSchema
	}
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

// Location 返回每日任务使用的时区，"Local" 表示进程本地时区
func (c *Config) Location() (*time.Location, error) {
	if c.MissionTimezone == "" || strings.EqualFold(c.MissionTimezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.MissionTimezone)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
