package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath               = "."
	defaultServiceName        = "tasktracker"
	defaultPort               = 8000
	defaultMaxRequestBodySize = "100KB"
	defaultTokenTTL           = 24 * time.Hour
	defaultLongLivedTokenTTL  = 30 * 24 * time.Hour
	defaultBcryptCost         = 10
	defaultMinSecretLength    = 32
	defaultMinDigits          = DefaultMinPasswordDigits
	defaultSQLitePath         = "./tasktracker.db"
	defaultMaxOpenConns       = 30
	defaultMaxIdleConns       = 10
	defaultConnMaxLifetime    = 300 * time.Second
	defaultMetricsPath        = "/metrics"

	// envSecretKey and envDatabaseURL are the flat variables deployments already set.
	envSecretKey   = "SECRET_KEY"
	envDatabaseURL = "DATABASE_URL"
)

// DefaultMinPasswordDigits is the registration policy used when none is configured.
const DefaultMinPasswordDigits = 8

// ErrMissingSecret is returned when no token signing secret is configured.
var ErrMissingSecret = errors.New("auth secret must be provided")

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Version     string `json:"version" yaml:"version"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP HTTPConfig `json:"http" yaml:"http"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	PasswordPolicy *PasswordPolicyConfig `json:"passwordPolicy" yaml:"passwordPolicy"`

	Database *DatabaseConfig `json:"database" yaml:"database"`

	Metrics *MetricsConfig `json:"metrics" yaml:"metrics"`

	// Seed is consumed by the admin CLI only.
	Seed *SeedConfig `json:"seed" yaml:"seed"`
}

type HTTPConfig struct {
	Port               int    `json:"port" yaml:"port"`
	MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
	Timeouts           struct {
		ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
		ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
		WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
		IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	} `json:"timeouts" yaml:"timeouts"`
	CORS struct {
		AllowOrigins []string `json:"allowOrigins" yaml:"allowOrigins"`
	} `json:"cors" yaml:"cors"`
}

// AuthConfig defines token and password hashing configuration
type AuthConfig struct {
	Secret            string        `json:"secret" yaml:"secret"`
	Issuer            string        `json:"issuer" yaml:"issuer"`
	TokenTTL          time.Duration `json:"tokenTTL" yaml:"tokenTTL"`
	LongLivedTokenTTL time.Duration `json:"longLivedTokenTTL" yaml:"longLivedTokenTTL"`
	BcryptCost        int           `json:"bcryptCost" yaml:"bcryptCost"`
	MinSecretLength   int           `json:"minSecretLength" yaml:"minSecretLength"`
}

// PasswordPolicyConfig defines the registration password policy.
// MinDigits is a minimum-strength heuristic, not an entropy estimate.
type PasswordPolicyConfig struct {
	MinDigits int `json:"minDigits" yaml:"minDigits"`
}

// DatabaseConfig defines the store connection.
// An empty URL selects the embedded SQLite file at SQLitePath.
type DatabaseConfig struct {
	URL         string     `json:"url" yaml:"url"`
	SQLitePath  string     `json:"sqlitePath" yaml:"sqlitePath"`
	Replicas    []string   `json:"replicas" yaml:"replicas"`
	AutoMigrate bool       `json:"autoMigrate" yaml:"autoMigrate"`
	Pool        PoolConfig `json:"pool" yaml:"pool"`
}

type PoolConfig struct {
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" yaml:"connMaxIdleTime"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

type SeedConfig struct {
	AdminEmail    string `json:"adminEmail" yaml:"adminEmail"`
	AdminPassword string `json:"adminPassword" yaml:"adminPassword"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf and overlays environment variables.
// A missing file is not an error; the environment alone may configure the service.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	if configFile, ok := findConfigFile(currEnv, searchPaths); ok {
		if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read %s config failed", currEnv)
		}
	}

	existingConfigMap := koanfInstance.Raw()

	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// AUTH_TOKENTTL -> auth.tokenTTL, aligned with the YAML keys already loaded.
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

// New loads and validates the service configuration. A missing signing secret is fatal.
func New() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads config.yaml and the environment and fills defaults without
// validating. Tools that never sign tokens, such as schema migration, use it directly.
func Load() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyEnvAliases(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth == nil || strings.TrimSpace(c.Auth.Secret) == "" {
		return ErrMissingSecret
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.LongLivedTokenTTL <= 0 {
		return errors.Errorf("token ttl must be positive (tokenTTL=%s, longLivedTokenTTL=%s)",
			c.Auth.TokenTTL, c.Auth.LongLivedTokenTTL)
	}
	if c.PasswordPolicy != nil && c.PasswordPolicy.MinDigits < 0 {
		return errors.Errorf("passwordPolicy.minDigits must not be negative, got %d", c.PasswordPolicy.MinDigits)
	}

	return nil
}

// WeakSecret reports whether the configured secret is shorter than recommended.
func (c *Config) WeakSecret() bool {
	return c.Auth != nil && len(c.Auth.Secret) < c.Auth.MinSecretLength
}

func applyEnvAliases(cfg *Config) {
	if v := os.Getenv(envSecretKey); v != "" {
		if cfg.Auth == nil {
			cfg.Auth = &AuthConfig{}
		}
		cfg.Auth.Secret = v
	}
	if v := os.Getenv(envDatabaseURL); v != "" {
		if cfg.Database == nil {
			cfg.Database = &DatabaseConfig{AutoMigrate: true}
		}
		cfg.Database.URL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Env.ServiceName == "" {
		cfg.Env.ServiceName = defaultServiceName
	}
	if cfg.Env.Log.Level == "" {
		cfg.Env.Log.Level = "info"
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = defaultPort
	}
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if len(cfg.HTTP.CORS.AllowOrigins) == 0 {
		cfg.HTTP.CORS.AllowOrigins = []string{"*"}
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = defaultTokenTTL
	}
	if cfg.Auth.LongLivedTokenTTL == 0 {
		cfg.Auth.LongLivedTokenTTL = defaultLongLivedTokenTTL
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = defaultBcryptCost
	}
	if cfg.Auth.MinSecretLength == 0 {
		cfg.Auth.MinSecretLength = defaultMinSecretLength
	}

	if cfg.PasswordPolicy == nil {
		cfg.PasswordPolicy = &PasswordPolicyConfig{MinDigits: defaultMinDigits}
	}

	if cfg.Database == nil {
		cfg.Database = &DatabaseConfig{AutoMigrate: true}
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = defaultSQLitePath
	}
	if cfg.Database.Pool.MaxOpenConns == 0 {
		cfg.Database.Pool.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.Pool.MaxIdleConns == 0 {
		cfg.Database.Pool.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.Pool.ConnMaxLifetime == 0 {
		cfg.Database.Pool.ConnMaxLifetime = defaultConnMaxLifetime
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{Enabled: true}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
}

func findConfigFile(currEnv string, searchPaths []string) (string, bool) {
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
