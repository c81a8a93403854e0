package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
// The feed endpoint itself comes from the command line, see ParseArgs.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ServersFile     string
	LogPath         string
	FeedDialTimeout time.Duration

	// CWOP station identity and mirror settings.
	Callsign       string
	Passcode       string
	ClientName     string
	ClientVersion  string
	CWOPPort       int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// Optional Kafka audit copy of every relayed report.
	KafkaBrokers    []string
	KafkaAuditTopic string
}

// KafkaEnabled reports whether relayed reports are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	connectTimeout, err := parseDuration("CWOP_CONNECT_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	readTimeout, err := parseDuration("CWOP_READ_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	dialTimeout, err := parseDuration("FEED_DIAL_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cwopPort, err := strconv.Atoi(sharedcfg.EnvOrDefault("CWOP_PORT", "8080"))
	if err != nil || cwopPort <= 0 || cwopPort > 65535 {
		return nil, errors.New("invalid CWOP_PORT")
	}

	var brokers []string
	if v := sharedcfg.EnvOrDefault("KAFKA_BROKERS", ""); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":9090"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout: shutdownTimeout,

		ServersFile:     sharedcfg.EnvOrDefault("SERVERS_FILE", DefaultServersFile),
		LogPath:         sharedcfg.EnvOrDefault("CWOP_LOG_PATH", "/var/log/cwop.log"),
		FeedDialTimeout: dialTimeout,

		Callsign:       sharedcfg.EnvOrDefault("CWOP_CALLSIGN", "N6TVE-11"),
		Passcode:       sharedcfg.EnvOrDefault("CWOP_PASSCODE", "11394"),
		ClientName:     sharedcfg.EnvOrDefault("CWOP_CLIENT", "beaglebone-1w"),
		ClientVersion:  sharedcfg.EnvOrDefault("CWOP_CLIENT_VERSION", "1.00"),
		CWOPPort:       cwopPort,
		ConnectTimeout: connectTimeout,
		ReadTimeout:    readTimeout,

		KafkaBrokers:    brokers,
		KafkaAuditTopic: sharedcfg.EnvOrDefault("KAFKA_AUDIT_TOPIC", "cwop-reports"),
	}

	if cfg.Callsign == "" {
		return nil, errors.New("CWOP_CALLSIGN is required")
	}
	if cfg.LogPath == "" {
		return nil, errors.New("CWOP_LOG_PATH is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaAuditTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_AUDIT_TOPIC is empty")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
