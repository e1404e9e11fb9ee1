package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type appConfig struct {
	NodeEnv  string
	LogLevel string

	// Socket, when set, is a UNIX-domain socket path. Otherwise a numeric
	// Port is a TCP port on Bind, and a non-numeric Port is itself taken
	// as a UNIX-domain socket path.
	Socket string
	Port   string
	Bind   string

	DatabaseURL string
	DBUser      string
	DBPass      string
	DBName      string
	DBHost      string
	DBPort      string
	DBSSLMode   string

	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisDB        int
	RedisPassword  string
	RedisNamespace string

	LimitedFederationMode bool
	WhitelistMode         bool
	AuthorizedFetch       bool
	AlwaysRequireAuth     bool

	StreamingClusterNum int

	// OtelExporterEndpoint, when set, turns on span export via OTLP/HTTP.
	OtelExporterEndpoint string
	OtelServiceName      string
}

func getEnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getEnvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func loadConfig() *appConfig {
	return &appConfig{
		NodeEnv:  getEnvDefault("NODE_ENV", "development"),
		LogLevel: getEnvDefault("LOG_LEVEL", "info"),

		Socket: getEnvDefault("SOCKET", ""),
		Port:   getEnvDefault("PORT", "4000"),
		Bind:   getEnvDefault("BIND", "0.0.0.0"),

		DatabaseURL: getEnvDefault("DATABASE_URL", ""),
		DBUser:      getEnvDefault("DB_USER", "mastodon"),
		DBPass:      getEnvDefault("DB_PASS", ""),
		DBName:      getEnvDefault("DB_NAME", "mastodon_production"),
		DBHost:      getEnvDefault("DB_HOST", "localhost"),
		DBPort:      getEnvDefault("DB_PORT", "5432"),
		DBSSLMode:   getEnvDefault("DB_SSLMODE", "disable"),

		RedisURL:       getEnvDefault("REDIS_URL", ""),
		RedisHost:      getEnvDefault("REDIS_HOST", "localhost"),
		RedisPort:      getEnvDefault("REDIS_PORT", "6379"),
		RedisDB:        getEnvIntDefault("REDIS_DB", 0),
		RedisPassword:  getEnvDefault("REDIS_PASSWORD", ""),
		RedisNamespace: getEnvDefault("REDIS_NAMESPACE", ""),

		LimitedFederationMode: getEnvBoolDefault("LIMITED_FEDERATION_MODE", false),
		WhitelistMode:         getEnvBoolDefault("WHITELIST_MODE", false),
		AuthorizedFetch:       getEnvBoolDefault("AUTHORIZED_FETCH", false),
		AlwaysRequireAuth:     getEnvBoolDefault("ALWAYS_REQUIRE_AUTH", false),

		StreamingClusterNum: getEnvIntDefault("STREAMING_CLUSTER_NUM", 1),

		OtelExporterEndpoint: getEnvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OtelServiceName:      getEnvDefault("OTEL_SERVICE_NAME", "streamgate"),
	}
}

// dsn builds a libpq-style connection string when DATABASE_URL is unset.
func (c *appConfig) dsn() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// redisAddr builds a host:port pair when REDIS_URL is unset.
func (c *appConfig) redisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// listenNetwork/listenAddress implement the SOCKET-or-PORT selection: a
// set SOCKET, or a non-numeric PORT, selects a UNIX-domain socket.
func (c *appConfig) listenNetwork() string {
	if c.Socket != "" {
		return "unix"
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return "unix"
	}
	return "tcp"
}

func (c *appConfig) listenAddress() string {
	if c.listenNetwork() == "unix" {
		if c.Socket != "" {
			return c.Socket
		}
		return c.Port
	}
	return c.Bind + ":" + c.Port
}
