package config

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	MySQL     MySQLConfig           `mapstructure:"mysql"`
	Redis     RedisConfig           `mapstructure:"redis"`
	Kafka     KafkaConfig           `mapstructure:"kafka"`
	Business  BusinessConfig        `mapstructure:"business"`
	Session   SessionConfig         `mapstructure:"session"`
	AntiCheat map[string]GameLimits `mapstructure:"anticheat"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	ActivityEvents string `mapstructure:"activity_events"`
}

type BusinessConfig struct {
	WelcomeBonus           int64 `mapstructure:"welcome_bonus"`
	BalanceFloor           int64 `mapstructure:"balance_floor"`
	MaxPointsPerSubmission int64 `mapstructure:"max_points_per_submission"`
	AllowPlayAfterLimit    bool  `mapstructure:"allow_play_after_limit"`
	RetentionDays          int   `mapstructure:"retention_days"`
	MaxRetryCount          int   `mapstructure:"max_retry_count"`
}

type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
	StrictIP   bool   `mapstructure:"strict_ip"`
}

// GameLimits is the single authoritative anti-cheat threshold table for one
// game. Both session start and score evaluation read the same entry.
type GameLimits struct {
	MaxScore     int64   `mapstructure:"max_score"`
	MinPlayTime  int64   `mapstructure:"min_play_time"`  // seconds
	MaxScoreRate float64 `mapstructure:"max_score_rate"` // score per second
}

// LoadConfig reads and parses config.yaml, applying defaults for the
// business knobs.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("business.welcome_bonus", 100)
	viper.SetDefault("business.balance_floor", 0)
	viper.SetDefault("business.max_points_per_submission", 500)
	viper.SetDefault("business.allow_play_after_limit", true)
	viper.SetDefault("business.retention_days", 90)
	viper.SetDefault("business.max_retry_count", 3)
	viper.SetDefault("session.ttl_minutes", 60)
	viper.SetDefault("session.strict_ip", false)

	if err := viper.ReadInConfig(); err != nil {
		logrus.WithError(err).Fatal("failed to read config file")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		logrus.WithError(err).Fatal("failed to parse config file")
	}

	if cfg.Session.Secret == "" {
		logrus.Fatal("session.secret must be set")
	}

	return cfg
}
