// Package config loads server settings from the environment.
package config

import (
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`

	ScyllaHosts    []string `envconfig:"SCYLLA_HOSTS" default:"localhost:9042"`
	ScyllaKeyspace string   `envconfig:"SCYLLA_KEYSPACE" default:"chat"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	// Empty brokers disable the firehose tap.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"chat-messages"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// NodeID must be unique per running instance for id generation.
	NodeID int64 `envconfig:"NODE_ID" default:"1"`

	// SendBuffer is the per-connection outbound event buffer; a
	// connection that falls this far behind is dropped.
	SendBuffer int `envconfig:"SEND_BUFFER" default:"256"`

	LogLevel slog.Level `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
