package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fk1blow/haplea/adapters/mymdns"
	"github.com/fk1blow/haplea/adapters/myredis"
	"github.com/fk1blow/haplea/adapters/probe"
	"github.com/fk1blow/haplea/discovery"
	"github.com/fk1blow/haplea/domain"

	"gopkg.in/yaml.v3"
)

// Env variable names.
const (
	envConfigPath          = "CONFIG_PATH"
	envHTTPPort            = "SERVICE_PORT_HTTP"
	envGRPCPort            = "SERVICE_PORT_GRPC"
	envInstanceName        = "INSTANCE_NAME"
	envServiceName         = "SERVICE_NAME"
	envEnableDiscovery     = "ENABLE_DISCOVERY"
	envEnableServer        = "ENABLE_SERVER"
	envHealthCheckInterval = "HEALTH_CHECK_INTERVAL"
	envProbeTimeout        = "PROBE_TIMEOUT"
	envProbeKind           = "PROBE_KIND"
	envMDNSQueryInterval   = "MDNS_QUERY_INTERVAL"
	envMDNSQueryTimeout    = "MDNS_QUERY_TIMEOUT"
	envMDNSMissedQueries   = "MDNS_MISSED_QUERIES"
	envMDNSMaxFailures     = "MDNS_MAX_QUERY_FAILURES"
	envMDNSDisableIPv6     = "MDNS_DISABLE_IPV6"
	envMDNSInterface       = "MDNS_INTERFACE"
	envEventBacklogLimit   = "EVENT_BACKLOG_LIMIT"
	envRedisAddr           = "REDIS_ADDR"
	envRedisPeerTTL        = "REDIS_PEER_TTL"
	envLogLevel            = "LOG_LEVEL"
)

// maxInstanceNameLen is the longest DNS label.
const maxInstanceNameLen = 63

// hostname resolves the default instance name.
var hostname = os.Hostname

// Config holds the haplea configuration. Values come from defaults, then the optional
// YAML file at CONFIG_PATH, then environment variables.
type Config struct {
	HTTPPort            int           `yaml:"service_port_http"`
	GRPCPort            int           `yaml:"service_port_grpc"`
	InstanceName        string        `yaml:"instance_name"`
	ServiceName         string        `yaml:"service_name"`
	EnableDiscovery     bool          `yaml:"enable_discovery"`
	EnableServer        bool          `yaml:"enable_server"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	ProbeTimeout        time.Duration `yaml:"probe_timeout"`
	ProbeKind           string        `yaml:"probe_kind"`
	EventBacklogLimit   int           `yaml:"event_backlog_limit"`
	MDNS                MDNSConfig    `yaml:"mdns"`
	Redis               RedisConfig   `yaml:"redis"`
	LogLevel            string        `yaml:"log_level"`
}

// MDNSConfig is the mdns section of the YAML file.
type MDNSConfig struct {
	QueryInterval    time.Duration `yaml:"query_interval"`
	QueryTimeout     time.Duration `yaml:"query_timeout"`
	MissedQueries    int           `yaml:"missed_queries"`
	MaxQueryFailures int           `yaml:"max_query_failures"`
	DisableIPv6      bool          `yaml:"disable_ipv6"`
	Interface        string        `yaml:"interface"`
}

// RedisConfig is the redis section of the YAML file. An empty Addr disables the mirror.
type RedisConfig struct {
	Addr    string        `yaml:"addr"`
	PeerTTL time.Duration `yaml:"peer_ttl"`
}

func defaultConfig() Config {
	mdnsDefaults := mymdns.DefaultConfig()
	return Config{
		HTTPPort:            3000,
		ServiceName:         domain.DefaultServiceName,
		EnableDiscovery:     true,
		EnableServer:        true,
		HealthCheckInterval: discovery.DefaultHealthCheckInterval,
		ProbeTimeout:        discovery.DefaultProbeTimeout,
		ProbeKind:           probe.KindTCP,
		MDNS: MDNSConfig{
			QueryInterval:    mdnsDefaults.QueryInterval,
			QueryTimeout:     mdnsDefaults.QueryTimeout,
			MissedQueries:    mdnsDefaults.MissedQueries,
			MaxQueryFailures: mdnsDefaults.MaxQueryFailures,
			DisableIPv6:      mdnsDefaults.DisableIPv6,
		},
		Redis: RedisConfig{
			PeerTTL: myredis.DefaultPeerTTL,
		},
		LogLevel: "info",
	}
}

// ServiceType is the DNS-SD service type derived from ServiceName.
func (c *Config) ServiceType() string {
	return domain.ServiceTypeFor(c.ServiceName)
}

// Transport converts the mdns section for the mDNS adapter.
func (c *Config) Transport() mymdns.Config {
	return mymdns.Config{
		QueryInterval:    c.MDNS.QueryInterval,
		QueryTimeout:     c.MDNS.QueryTimeout,
		MissedQueries:    c.MDNS.MissedQueries,
		MaxQueryFailures: c.MDNS.MaxQueryFailures,
		DisableIPv6:      c.MDNS.DisableIPv6,
		Interface:        c.MDNS.Interface,
	}
}

// loadYAMLConfig reads the YAML file at path over cfg; keys absent from the file keep their value.
func loadYAMLConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// LoadConfig builds the configuration. Every variable is optional; INSTANCE_NAME defaults to the machine hostname.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if configPath := strings.TrimSpace(os.Getenv(envConfigPath)); configPath != "" {
		if !filepath.IsAbs(configPath) {
			abs, err := filepath.Abs(configPath)
			if err != nil {
				return nil, err
			}
			configPath = abs
		}
		if err := loadYAMLConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
	}

	env := envReader{}
	env.setInt(envHTTPPort, &cfg.HTTPPort)
	env.setInt(envGRPCPort, &cfg.GRPCPort)
	env.setString(envInstanceName, &cfg.InstanceName)
	env.setString(envServiceName, &cfg.ServiceName)
	env.setBool(envEnableDiscovery, &cfg.EnableDiscovery)
	env.setBool(envEnableServer, &cfg.EnableServer)
	env.setDuration(envHealthCheckInterval, &cfg.HealthCheckInterval)
	env.setDuration(envProbeTimeout, &cfg.ProbeTimeout)
	env.setString(envProbeKind, &cfg.ProbeKind)
	env.setDuration(envMDNSQueryInterval, &cfg.MDNS.QueryInterval)
	env.setDuration(envMDNSQueryTimeout, &cfg.MDNS.QueryTimeout)
	env.setInt(envMDNSMissedQueries, &cfg.MDNS.MissedQueries)
	env.setInt(envMDNSMaxFailures, &cfg.MDNS.MaxQueryFailures)
	env.setBool(envMDNSDisableIPv6, &cfg.MDNS.DisableIPv6)
	env.setString(envMDNSInterface, &cfg.MDNS.Interface)
	env.setInt(envEventBacklogLimit, &cfg.EventBacklogLimit)
	env.setString(envRedisAddr, &cfg.Redis.Addr)
	env.setDuration(envRedisPeerTTL, &cfg.Redis.PeerTTL)
	env.setString(envLogLevel, &cfg.LogLevel)
	if env.err != nil {
		return nil, env.err
	}

	if cfg.InstanceName == "" {
		name, err := hostname()
		if err != nil {
			return nil, fmt.Errorf("%s is not set and the hostname is unavailable: %w", envInstanceName, err)
		}
		cfg.InstanceName = name
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%s must be 1-65535, got %d", envHTTPPort, c.HTTPPort)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("%s must be 0-65535, got %d", envGRPCPort, c.GRPCPort)
	}
	if c.GRPCPort != 0 && c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("%s and %s must differ", envGRPCPort, envHTTPPort)
	}
	if len(c.InstanceName) > maxInstanceNameLen {
		return fmt.Errorf("%s must be at most %d bytes, got %q", envInstanceName, maxInstanceNameLen, c.InstanceName)
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("%s must not be empty", envServiceName)
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("%s must be positive, got %s", envHealthCheckInterval, c.HealthCheckInterval)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", envProbeTimeout, c.ProbeTimeout)
	}
	if _, err := probe.New(c.ProbeKind); err != nil {
		return fmt.Errorf("%s: %w", envProbeKind, err)
	}
	if c.EventBacklogLimit < 0 {
		return fmt.Errorf("%s must not be negative, got %d", envEventBacklogLimit, c.EventBacklogLimit)
	}
	if c.Redis.PeerTTL < myredis.MinPeerTTL {
		return fmt.Errorf("%s must be at least %s, got %s", envRedisPeerTTL, myredis.MinPeerTTL, c.Redis.PeerTTL)
	}
	if c.MDNS.MaxQueryFailures < 0 {
		return fmt.Errorf("%s must not be negative, got %d", envMDNSMaxFailures, c.MDNS.MaxQueryFailures)
	}
	if _, err := levelOption(c.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", envLogLevel, err)
	}
	return nil
}

// envReader overrides config fields from set environment variables and keeps the first parse error.
type envReader struct {
	err error
}

func (r *envReader) lookup(name string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) setString(name string, dst *string) {
	if v, ok := r.lookup(name); ok {
		*dst = v
	}
}

func (r *envReader) setInt(name string, dst *int) {
	v, ok := r.lookup(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("invalid %s: %w", name, err)
		return
	}
	*dst = n
}

func (r *envReader) setBool(name string, dst *bool) {
	v, ok := r.lookup(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("invalid %s: %w", name, err)
		return
	}
	*dst = b
}

func (r *envReader) setDuration(name string, dst *time.Duration) {
	v, ok := r.lookup(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.err = fmt.Errorf("invalid %s: %w", name, err)
		return
	}
	*dst = d
}
