package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEndpoint          = "https://googleads.googleapis.com"
	defaultVersion           = "v17"
	defaultRequestsPerSecond = 5.0
	defaultTimeout           = time.Minute
	defaultMaxAttempts       = 3
	defaultBaseDelay         = time.Second
	defaultStatusLimit       = 100
	defaultBulkLimit         = 5000
	defaultBatchLimit        = 1000
	defaultCloneConcurrency  = 4
	defaultJournalPath       = "adsmutate.db"
	defaultServerAddr        = ":9090"
	defaultLogLevel          = "info"
	defaultLogEnv            = "prod"
)

type Config struct {
	Log       Log       `yaml:"log"`
	API       API       `yaml:"api"`
	Connector Connector `yaml:"connector"`
	Limits    Limits    `yaml:"limits"`
	Clone     Clone     `yaml:"clone"`
	Journal   Journal   `yaml:"journal"`
	Server    Server    `yaml:"server"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type API struct {
	Endpoint          string        `yaml:"endpoint"`
	Version           string        `yaml:"version"`
	DeveloperToken    string        `yaml:"developerToken"`
	ClientID          string        `yaml:"clientId"`
	ClientSecret      string        `yaml:"clientSecret"`
	RefreshToken      string        `yaml:"refreshToken"`
	LoginCustomerID   string        `yaml:"loginCustomerId"`
	CustomerID        string        `yaml:"customerId"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Timeout           time.Duration `yaml:"timeout"`
}

type Connector struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
}

// Limits are the per batch kind ceilings on operations in one request.
type Limits struct {
	Status  int `yaml:"status"`
	Bulk    int `yaml:"bulk"`
	Default int `yaml:"default"`
}

type Clone struct {
	Concurrency int `yaml:"concurrency"`
}

type Journal struct {
	Path string `yaml:"path"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	configFile := true
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail find config file, proceeding", "path", path)
		configFile = false
	}

	var cfg Config
	if configFile {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = defaultEndpoint
	}
	if cfg.API.Version == "" {
		cfg.API.Version = defaultVersion
	}
	if cfg.API.RequestsPerSecond <= 0 {
		cfg.API.RequestsPerSecond = defaultRequestsPerSecond
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = defaultTimeout
	}
	if cfg.Connector.MaxAttempts <= 0 {
		cfg.Connector.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Connector.BaseDelay == 0 {
		cfg.Connector.BaseDelay = defaultBaseDelay
	}
	if cfg.Limits.Status <= 0 {
		cfg.Limits.Status = defaultStatusLimit
	}
	if cfg.Limits.Bulk <= 0 {
		cfg.Limits.Bulk = defaultBulkLimit
	}
	if cfg.Limits.Default <= 0 {
		cfg.Limits.Default = defaultBatchLimit
	}
	if cfg.Clone.Concurrency <= 0 {
		cfg.Clone.Concurrency = defaultCloneConcurrency
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = defaultJournalPath
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}

	// Set log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}
}

// Credential variables keep the names used by the vendor client libraries.
var credentialEnv = []struct {
	name string
	dst  func(*API) *string
}{
	{"GOOGLE_ADS_DEVELOPER_TOKEN", func(a *API) *string { return &a.DeveloperToken }},
	{"GOOGLE_ADS_CLIENT_ID", func(a *API) *string { return &a.ClientID }},
	{"GOOGLE_ADS_CLIENT_SECRET", func(a *API) *string { return &a.ClientSecret }},
	{"GOOGLE_ADS_REFRESH_TOKEN", func(a *API) *string { return &a.RefreshToken }},
	{"GOOGLE_ADS_LOGIN_CUSTOMER_ID", func(a *API) *string { return &a.LoginCustomerID }},
	{"GOOGLE_ADS_CUSTOMER_ID", func(a *API) *string { return &a.CustomerID }},
}

// Override from environment if set
func (cfg *Config) applyEnv() {
	for _, c := range credentialEnv {
		if v := os.Getenv(c.name); v != "" {
			*c.dst(&cfg.API) = v
		}
	}
	if endpoint := os.Getenv("ADSMUTATE_API_ENDPOINT"); endpoint != "" {
		cfg.API.Endpoint = endpoint
	}
	if version := os.Getenv("ADSMUTATE_API_VERSION"); version != "" {
		cfg.API.Version = version
	}
	if rps := os.Getenv("ADSMUTATE_REQUESTS_PER_SECOND"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.API.RequestsPerSecond = v
		} else {
			slog.Default().Warn("fail parse requests per second to float from string", "rps", rps, "error", err)
		}
	}
	if timeout := os.Getenv("ADSMUTATE_API_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.API.Timeout = d
		} else {
			slog.Default().Warn("fail parse api timeout to duration from string", "timeout", timeout, "error", err)
		}
	}
	if attempts := os.Getenv("ADSMUTATE_CONNECTOR_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			cfg.Connector.MaxAttempts = n
		} else {
			slog.Default().Warn("fail parse connector attempts to int from string", "attempts", attempts, "error", err)
		}
	}
	if delay := os.Getenv("ADSMUTATE_CONNECTOR_BASE_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Connector.BaseDelay = d
		} else {
			slog.Default().Warn("fail parse connector delay to duration from string", "delay", delay, "error", err)
		}
	}
	if concurrency := os.Getenv("ADSMUTATE_CLONE_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil {
			cfg.Clone.Concurrency = n
		} else {
			slog.Default().Warn("fail parse clone concurrency to int from string", "concurrency", concurrency, "error", err)
		}
	}
	if journalPath := os.Getenv("ADSMUTATE_JOURNAL_PATH"); journalPath != "" {
		cfg.Journal.Path = journalPath
	}
	if addr := os.Getenv("ADSMUTATE_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if loglevel := os.Getenv("ADSMUTATE_LOG_LEVEL"); loglevel != "" {
		cfg.Log.Level = loglevel
	}
	if logenv := os.Getenv("ADSMUTATE_LOG_ENV"); logenv != "" {
		cfg.Log.Env = logenv
	}
}

// Validate returns the names of required credential variables that are
// not set.
func (cfg *Config) Validate() []string {
	var missing []string
	required := map[string]string{
		"GOOGLE_ADS_DEVELOPER_TOKEN": cfg.API.DeveloperToken,
		"GOOGLE_ADS_CLIENT_ID":       cfg.API.ClientID,
		"GOOGLE_ADS_CLIENT_SECRET":   cfg.API.ClientSecret,
		"GOOGLE_ADS_REFRESH_TOKEN":   cfg.API.RefreshToken,
	}
	for _, c := range credentialEnv {
		if v, ok := required[c.name]; ok && v == "" {
			missing = append(missing, c.name)
		}
	}
	return missing
}

// ResolveCustomerID returns id, or the configured default customer when id
// is empty, with dashes removed.
func (cfg *Config) ResolveCustomerID(id string) (string, error) {
	if id == "" {
		id = cfg.API.CustomerID
	}
	if id == "" {
		return "", errors.New("no customer id given and GOOGLE_ADS_CUSTOMER_ID is not set")
	}
	return strings.ReplaceAll(strings.TrimSpace(id), "-", ""), nil
}
