package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Generator GeneratorConfig
	Workers   WorkersConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type GeneratorConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// WorkersConfig sizes the per-queue worker pools. Execute is constrained
// lowest because each slot drives an expensive external run.
type WorkersConfig struct {
	Generate int
	Validate int
	Lint     int
	Execute  int
	Refine   int
}

type RateLimitConfig struct {
	GeneratePerMin int
	ValidatePerMin int
	LintPerMin     int
	ExecutePerHour int
	RefinePerMin   int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("generator.base_url", "http://localhost:8000")
	viper.SetDefault("generator.timeout_seconds", 60)
	viper.SetDefault("workers.generate", 2)
	viper.SetDefault("workers.validate", 5)
	viper.SetDefault("workers.lint", 5)
	viper.SetDefault("workers.execute", 3)
	viper.SetDefault("workers.refine", 2)
	viper.SetDefault("ratelimit.generate_per_min", 10)
	viper.SetDefault("ratelimit.validate_per_min", 30)
	viper.SetDefault("ratelimit.lint_per_min", 30)
	viper.SetDefault("ratelimit.execute_per_hour", 20)
	viper.SetDefault("ratelimit.refine_per_min", 10)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		Generator: GeneratorConfig{
			BaseURL:        viper.GetString("generator.base_url"),
			TimeoutSeconds: viper.GetInt("generator.timeout_seconds"),
		},
		Workers: WorkersConfig{
			Generate: viper.GetInt("workers.generate"),
			Validate: viper.GetInt("workers.validate"),
			Lint:     viper.GetInt("workers.lint"),
			Execute:  viper.GetInt("workers.execute"),
			Refine:   viper.GetInt("workers.refine"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerMin: viper.GetInt("ratelimit.generate_per_min"),
			ValidatePerMin: viper.GetInt("ratelimit.validate_per_min"),
			LintPerMin:     viper.GetInt("ratelimit.lint_per_min"),
			ExecutePerHour: viper.GetInt("ratelimit.execute_per_hour"),
			RefinePerMin:   viper.GetInt("ratelimit.refine_per_min"),
		},
	}

	return cfg, nil
}
