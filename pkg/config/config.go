package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Calendar  CalendarConfig
	Optimizer OptimizerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CalendarConfig locates the academic calendar definition used to compile
// weekly scheduling constraints.
type CalendarConfig struct {
	Path         string
	AcademicYear string
	Timezone     string
}

// OptimizerConfig carries GA defaults and runtime limits for the weekly
// schedule optimizer.
type OptimizerConfig struct {
	Enabled        bool
	PopulationSize int
	MaxGenerations int
	MutationRate   float64
	CrossoverRate  float64
	TournamentSize int
	EvalWorkers    int
	RunTimeout     time.Duration
	ReportCacheTTL time.Duration
	QueueWorkers   int
	QueueBuffer    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Calendar = CalendarConfig{
		Path:         v.GetString("CALENDAR_PATH"),
		AcademicYear: v.GetString("CALENDAR_ACADEMIC_YEAR"),
		Timezone:     v.GetString("CALENDAR_TIMEZONE"),
	}

	cfg.Optimizer = OptimizerConfig{
		Enabled:        v.GetBool("ENABLE_OPTIMIZER"),
		PopulationSize: v.GetInt("OPTIMIZER_POPULATION_SIZE"),
		MaxGenerations: v.GetInt("OPTIMIZER_MAX_GENERATIONS"),
		MutationRate:   v.GetFloat64("OPTIMIZER_MUTATION_RATE"),
		CrossoverRate:  v.GetFloat64("OPTIMIZER_CROSSOVER_RATE"),
		TournamentSize: v.GetInt("OPTIMIZER_TOURNAMENT_SIZE"),
		EvalWorkers:    v.GetInt("OPTIMIZER_EVAL_WORKERS"),
		RunTimeout:     parseDuration(v.GetString("OPTIMIZER_RUN_TIMEOUT"), 5*time.Minute),
		ReportCacheTTL: parseDuration(v.GetString("OPTIMIZER_REPORT_CACHE_TTL"), time.Hour),
		QueueWorkers:   v.GetInt("OPTIMIZER_QUEUE_WORKERS"),
		QueueBuffer:    v.GetInt("OPTIMIZER_QUEUE_BUFFER"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "uvems")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALENDAR_PATH", "./academic_calendar.json")
	v.SetDefault("CALENDAR_ACADEMIC_YEAR", "2024-2025")
	v.SetDefault("CALENDAR_TIMEZONE", "Asia/Manila")

	v.SetDefault("ENABLE_OPTIMIZER", true)
	v.SetDefault("OPTIMIZER_POPULATION_SIZE", 50)
	v.SetDefault("OPTIMIZER_MAX_GENERATIONS", 50)
	v.SetDefault("OPTIMIZER_MUTATION_RATE", 0.15)
	v.SetDefault("OPTIMIZER_CROSSOVER_RATE", 0.8)
	v.SetDefault("OPTIMIZER_TOURNAMENT_SIZE", 5)
	v.SetDefault("OPTIMIZER_EVAL_WORKERS", 4)
	v.SetDefault("OPTIMIZER_RUN_TIMEOUT", "5m")
	v.SetDefault("OPTIMIZER_REPORT_CACHE_TTL", "1h")
	v.SetDefault("OPTIMIZER_QUEUE_WORKERS", 1)
	v.SetDefault("OPTIMIZER_QUEUE_BUFFER", 4)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
