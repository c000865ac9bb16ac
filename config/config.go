package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the analysis service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// ProvidersConfig contains credentials and tunables for the external
// quote and search providers.
type ProvidersConfig struct {
	TwelveData TwelveDataConfig `mapstructure:"twelvedata"`
	Tavily     TavilyConfig     `mapstructure:"tavily"`
}

// TwelveDataConfig configures the quote provider client.
type TwelveDataConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TavilyConfig configures the search/extract/crawl provider client.
type TavilyConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	SearchTimeout  time.Duration `mapstructure:"search_timeout"`
	ExtractTimeout time.Duration `mapstructure:"extract_timeout"`
	Retries        int           `mapstructure:"retries"`
	Backoff        time.Duration `mapstructure:"backoff"`
}

// LLMConfig contains the chat-completion provider configuration.
// Routing follows a primary/fallback tier pair: the resilient call wrapper
// switches to the fallback model after the first failed attempt.
type LLMConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	PrimaryModel   string        `mapstructure:"primary_model"`
	FallbackModel  string        `mapstructure:"fallback_model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// PipelineConfig contains stage tunables.
type PipelineConfig struct {
	HistoryDays     int           `mapstructure:"history_days"`      // price stage close history
	WindowDays      int           `mapstructure:"window_days"`       // trend stage trailing window
	NewsCap         int           `mapstructure:"news_cap"`          // max retained news items
	NewsMaxResults  int           `mapstructure:"news_max_results"`  // search breadth per query
	MinNewsItems    int           `mapstructure:"min_news_items"`    // sentiment pre-emptive threshold
	TrendMaxResults int           `mapstructure:"trend_max_results"` // results consumed per trend query
	MaxConcurrent   int           `mapstructure:"max_concurrent"`    // simultaneous pipeline runs
	ResultCacheTTL  time.Duration `mapstructure:"result_cache_ttl"`
}

// StorageConfig contains durable store and cache settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig configures the analysis document store.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN assembles a postgres connection string from either the URL or the
// individual fields. Empty host and dbname mean "not configured".
func (p PostgresConfig) DSN() (string, bool) {
	if p.URL != "" {
		return p.URL, true
	}
	if p.Host == "" || p.DBName == "" {
		return "", false
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, port, p.DBName, ssl), true
}

// RedisConfig configures the optional analysis result cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoadConfig reads configuration from file and environment. A .env file in
// the working directory is loaded first so that ECHOMARKET_* variables can
// live alongside the provider API keys during development.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("providers.twelvedata.base_url", "https://api.twelvedata.com")
	viper.SetDefault("providers.twelvedata.timeout", 10*time.Second)
	viper.SetDefault("providers.tavily.base_url", "https://api.tavily.com")
	viper.SetDefault("providers.tavily.search_timeout", 20*time.Second)
	viper.SetDefault("providers.tavily.extract_timeout", 30*time.Second)
	viper.SetDefault("providers.tavily.retries", 2)
	viper.SetDefault("providers.tavily.backoff", 300*time.Millisecond)
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.primary_model", "gpt-4o-mini")
	viper.SetDefault("llm.fallback_model", "gpt-3.5-turbo")
	viper.SetDefault("llm.timeout", 15*time.Second)
	viper.SetDefault("llm.max_attempts", 3)
	viper.SetDefault("llm.initial_backoff", time.Second)
	viper.SetDefault("pipeline.history_days", 7)
	viper.SetDefault("pipeline.window_days", 30)
	viper.SetDefault("pipeline.news_cap", 8)
	viper.SetDefault("pipeline.news_max_results", 10)
	viper.SetDefault("pipeline.min_news_items", 3)
	viper.SetDefault("pipeline.trend_max_results", 5)
	viper.SetDefault("pipeline.max_concurrent", 8)
	viper.SetDefault("pipeline.result_cache_ttl", 10*time.Minute)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("ECHOMARKET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// credential env aliases matching the original deployment variables
	_ = viper.BindEnv("providers.twelvedata.api_key", "TWELVE_DATA_API_KEY")
	_ = viper.BindEnv("providers.tavily.api_key", "TAVILY_API_KEY")
	_ = viper.BindEnv("llm.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("storage.postgres.url", "DATABASE_URL")
	_ = viper.BindEnv("storage.redis.addr", "REDIS_ADDR")

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional; env and defaults are enough to run degraded
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
