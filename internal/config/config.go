package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Ticket    TicketConfig
	Scan      ScanConfig
	Directory DirectoryConfig
	LogLevel  string `env:"LOG_LEVEL" envDefault:"INFO"`
}

type ServerConfig struct {
	Port         string        `env:"PORT" envDefault:":8084"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"` // zero keeps SSE feeds open
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

type DatabaseConfig struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN          string        `env:"DB_DSN" envDefault:"file:volunteer.db?cache=shared"`
	AutoMigrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	MaxLifetime  time.Duration `env:"DB_MAX_LIFETIME" envDefault:"5m"`
	ConnectRetry int           `env:"DB_CONNECT_RETRIES" envDefault:"5"`
}

type RedisConfig struct {
	Enabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Addr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DB      int    `env:"REDIS_DB" envDefault:"0"`
}

type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"volunteer-service"`
	Topics  TopicConfig
}

type TopicConfig struct {
	RegistrationCreated string `env:"KAFKA_TOPIC_REGISTRATION_CREATED" envDefault:"volunteer.registration.created"`
	AttendanceMarked    string `env:"KAFKA_TOPIC_ATTENDANCE_MARKED" envDefault:"volunteer.attendance.marked"`
	EventsUpserted      string `env:"KAFKA_TOPIC_EVENTS" envDefault:"volunteer.events.upserted"`
	UsersUpserted       string `env:"KAFKA_TOPIC_USERS" envDefault:"volunteer.users.upserted"`
}

// All returns every topic the service reads or writes.
func (t TopicConfig) All() []string {
	return []string{t.RegistrationCreated, t.AttendanceMarked, t.EventsUpserted, t.UsersUpserted}
}

type AuthConfig struct {
	// OIDCIssuer takes precedence over HMACSecret when both are set.
	OIDCIssuer string `env:"OIDC_ISSUER"`
	HMACSecret string `env:"JWT_HMAC_SECRET"`
	RolesClaim string `env:"JWT_ROLES_CLAIM" envDefault:"realm_access.roles"`
}

type TicketConfig struct {
	QRSize int `env:"TICKET_QR_SIZE" envDefault:"256"`
}

type ScanConfig struct {
	// AutoDismiss unlocks a session after a displayed result if the operator does not acknowledge it.
	// Zero waits for an explicit acknowledgement.
	AutoDismiss time.Duration `env:"SCAN_AUTO_DISMISS" envDefault:"0s"`
}

type DirectoryConfig struct {
	// RequireKnownEvent rejects registrations for events the directory has not seen.
	RequireKnownEvent bool `env:"DIRECTORY_REQUIRE_EVENT" envDefault:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Scan.AutoDismiss < 0 {
		return nil, fmt.Errorf("SCAN_AUTO_DISMISS must not be negative")
	}
	return &cfg, nil
}
