package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMoralisBaseURL = "https://deep-index.moralis.io/api/v2.2"
	defaultChain          = "arbitrum"
	defaultPort           = "4000"
	defaultTopicPrefix    = "walletops-history"
)

type Config struct {
	MoralisAPIKey    string
	MoralisBaseURL   string
	Chain            string
	UpstreamTimeout  time.Duration
	HTTPAddr         string
	RedisAddr        string
	CacheTTL         time.Duration
	OtelEndpoint     string
	KafkaBrokers     []string
	KafkaTopicPrefix string
	TokenAliasesFile string
	LogLevel         string
	LogFormat        string
	LogFile          string
	LogMaxSizeMB     int
	LogMaxBackups    int
}

// ProviderConfigured reports whether an upstream API key is present. A
// missing key is not a load error; history requests fail instead.
func (c Config) ProviderConfigured() bool {
	return c.MoralisAPIKey != ""
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

type processEnv struct{}

func (processEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func FromEnviron() EnvSource {
	return processEnv{}
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	upstreamTimeout, err := parseDurationEnv(source, "UPSTREAM_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDurationEnv(source, "CACHE_TTL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	logMaxSize, err := parseIntEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseIntEnv(source, "LOG_MAX_BACKUPS", 3)
	if err != nil {
		return Config{}, err
	}

	httpAddr := stringEnv(source, "HTTP_ADDR", "")
	if httpAddr == "" {
		port := stringEnv(source, "PORT", defaultPort)
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return Config{}, fmt.Errorf("invalid PORT: %w", err)
		}
		httpAddr = ":" + port
	}

	return Config{
		MoralisAPIKey:    stringEnv(source, "MORALIS_API_KEY", ""),
		MoralisBaseURL:   stringEnv(source, "MORALIS_BASE_URL", defaultMoralisBaseURL),
		Chain:            strings.ToLower(stringEnv(source, "MORALIS_CHAIN", defaultChain)),
		UpstreamTimeout:  upstreamTimeout,
		HTTPAddr:         httpAddr,
		RedisAddr:        stringEnv(source, "REDIS_ADDR", ""),
		CacheTTL:         cacheTTL,
		OtelEndpoint:     stringEnv(source, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		KafkaBrokers:     parseList(source, "KAFKA_BROKERS"),
		KafkaTopicPrefix: stringEnv(source, "KAFKA_TOPIC_PREFIX", defaultTopicPrefix),
		TokenAliasesFile: stringEnv(source, "TOKEN_ALIASES_FILE", ""),
		LogLevel:         stringEnv(source, "LOG_LEVEL", "info"),
		LogFormat:        stringEnv(source, "LOG_FORMAT", "text"),
		LogFile:          stringEnv(source, "LOG_FILE", ""),
		LogMaxSizeMB:     logMaxSize,
		LogMaxBackups:    logMaxBackups,
	}, nil
}

// stringEnv returns the trimmed value of key, or defaultValue when it is
// unset or blank.
func stringEnv(source EnvSource, key, defaultValue string) string {
	raw, ok := source.Lookup(key)
	if !ok {
		return defaultValue
	}
	if value := strings.TrimSpace(raw); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw := stringEnv(source, key, "")
	if raw == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}

func parseIntEnv(source EnvSource, key string, defaultValue int) (int, error) {
	raw := stringEnv(source, key, "")
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return value, nil
}

func parseList(source EnvSource, key string) []string {
	raw, _ := source.Lookup(key)
	var values []string
	for _, item := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(item); value != "" {
			values = append(values, value)
		}
	}
	return values
}
