package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Server     ServerConfig     `mapstructure:"server"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type ClassifierConfig struct {
	Mode           string `mapstructure:"mode"`
	MinConfidence  int    `mapstructure:"min_confidence"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type SchedulerConfig struct {
	TickSeconds          int `mapstructure:"tick_seconds"`
	ErrorBackoffSeconds  int `mapstructure:"error_backoff_seconds"`
	StopTimeoutSeconds   int `mapstructure:"stop_timeout_seconds"`
	CheckIntervalMinutes int `mapstructure:"check_interval_minutes"`
}

type MonitorConfig struct {
	FetchLimit        int `mapstructure:"fetch_limit"`
	BufferSize        int `mapstructure:"buffer_size"`
	RetryAttempts     int `mapstructure:"retry_attempts"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("classifier.mode", "confidence")
	v.SetDefault("classifier.min_confidence", 7)
	v.SetDefault("classifier.timeout_seconds", 30)
	v.SetDefault("scheduler.tick_seconds", 60)
	v.SetDefault("scheduler.error_backoff_seconds", 30)
	v.SetDefault("scheduler.stop_timeout_seconds", 5)
	v.SetDefault("scheduler.check_interval_minutes", 5)
	v.SetDefault("monitor.fetch_limit", 100)
	v.SetDefault("monitor.buffer_size", 500)
	v.SetDefault("monitor.retry_attempts", 3)
	v.SetDefault("monitor.retry_delay_seconds", 2)
	v.SetDefault("server.port", 8080)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}
