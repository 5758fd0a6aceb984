package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Booking    BookingConfig    `yaml:"booking"`
	Payment    PaymentConfig    `yaml:"payment"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Precompute PrecomputeConfig `yaml:"precompute"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers               []string `yaml:"brokers"`
	SeatUpdatesTopic      string   `yaml:"seat_updates_topic"`
	FlightUpdatesTopic    string   `yaml:"flight_updates_topic"`
	GroupID               string   `yaml:"group_id"`
	HeartbeatSeconds      int      `yaml:"heartbeat_seconds"`
	SessionTimeoutSeconds int      `yaml:"session_timeout_seconds"`
}

type BookingConfig struct {
	LockTTLSeconds  int `yaml:"lock_ttl_seconds"`
	LockWaitSeconds int `yaml:"lock_wait_seconds"`
	LockRetryMillis int `yaml:"lock_retry_millis"`
}

type PaymentConfig struct {
	MinLatencyMillis int     `yaml:"min_latency_millis"`
	MaxLatencyMillis int     `yaml:"max_latency_millis"`
	FailureRate      float64 `yaml:"failure_rate"`
}

type ReconcilerConfig struct {
	FlushIntervalSeconds int `yaml:"flush_interval_seconds"`
	QueueSize            int `yaml:"queue_size"`
}

type PrecomputeConfig struct {
	Workers int `yaml:"workers"`
	MaxHops int `yaml:"max_hops"`
	TopK    int `yaml:"top_k"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
