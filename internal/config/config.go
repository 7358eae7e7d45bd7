package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/bottingctl/internal/adapters/gameapi"
	"github.com/bnema/bottingctl/internal/adapters/process"
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "BOTTINGCTL"
	configDir  = ".bottingctl"
	configName = "config"
	configType = "toml"
)

// Keys understood in config.toml. BOTTINGCTL_ACCOUNTS_PATH overrides
// accounts.path, and so on.
const (
	KeyAccountsPath       = "accounts.path"
	KeyStatePath          = "state.path"
	KeySecretsDir         = "secrets.dir"
	KeySecretsPass        = "secrets.pass"
	KeyClientExecutable   = "client.executable"
	KeyClientProcessName  = "client.process_name"
	KeyPlaceLauncherURL   = "client.place_launcher_url"
	KeyAuthBaseURL        = "api.auth_base_url"
	KeyShareLinksBaseURL  = "api.share_links_base_url"
	KeyRequestTimeout     = "api.request_timeout"
	KeyRateLimitPhrases   = "detection.rate_limit_phrases"
	KeyAuthFailurePhrases = "detection.auth_failure_phrases"
	KeyRelaunchInterval   = "session.relaunch_interval"
	KeyLaunchDelay        = "session.launch_delay"
	KeyRetryBase          = "session.retry_base"
	KeyRetryCeiling       = "session.retry_ceiling"
	KeyPlayerGrace        = "session.player_grace"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
)

type Config struct {
	AccountsPath string
	StatePath    string
	Secrets      SecretsConfig
	Client       ClientConfig
	API          APIConfig
	Detection    DetectionConfig
	Session      SessionDefaults
	Log          LogConfig
}

type SecretsConfig struct {
	Dir     string
	UsePass bool
}

type ClientConfig struct {
	Executable       string
	ProcessName      string
	PlaceLauncherURL string
}

type APIConfig struct {
	AuthBaseURL       string
	ShareLinksBaseURL string
	RequestTimeout    time.Duration
}

type DetectionConfig struct {
	RateLimitPhrases   []string
	AuthFailurePhrases []string
}

// Classifier builds the failure classifier, falling back to the built-in
// phrase lists for any list left empty.
func (d DetectionConfig) Classifier() domain.FailureClassifier {
	return domain.NewFailureClassifier(d.RateLimitPhrases, d.AuthFailurePhrases)
}

// SessionDefaults seed the settings of a new session; flags on `run`
// override them.
type SessionDefaults struct {
	RelaunchInterval time.Duration
	LaunchDelay      time.Duration
	RetryBase        time.Duration
	RetryCeiling     time.Duration
	PlayerGrace      time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// NewViper returns a viper instance that reads ~/.bottingctl/config.toml
// when present and lets BOTTINGCTL_* variables override any key.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Join(homeDir, configDir))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return v, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySecretsPass, true)
	v.SetDefault(KeyClientProcessName, process.DefaultProcessName)
	v.SetDefault(KeyPlaceLauncherURL, process.DefaultPlaceLauncherURL)
	v.SetDefault(KeyAuthBaseURL, gameapi.DefaultAuthBaseURL)
	v.SetDefault(KeyShareLinksBaseURL, gameapi.DefaultShareLinksBaseURL)
	v.SetDefault(KeyRequestTimeout, "15s")
	v.SetDefault(KeyRelaunchInterval, domain.DefaultRelaunchInterval.String())
	v.SetDefault(KeyLaunchDelay, domain.DefaultLaunchDelay.String())
	v.SetDefault(KeyRetryBase, domain.DefaultRetryBase.String())
	v.SetDefault(KeyRetryCeiling, domain.DefaultRetryCeiling.String())
	v.SetDefault(KeyPlayerGrace, domain.DefaultPlayerGrace.String())
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// Load reads every key into a Config and validates it. Paths left empty
// are resolved by the adapters that own them.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
		SetDefaults(v)
	}

	cfg := &Config{
		AccountsPath: v.GetString(KeyAccountsPath),
		StatePath:    v.GetString(KeyStatePath),
		Secrets: SecretsConfig{
			Dir:     v.GetString(KeySecretsDir),
			UsePass: v.GetBool(KeySecretsPass),
		},
		Client: ClientConfig{
			Executable:       v.GetString(KeyClientExecutable),
			ProcessName:      v.GetString(KeyClientProcessName),
			PlaceLauncherURL: v.GetString(KeyPlaceLauncherURL),
		},
		API: APIConfig{
			AuthBaseURL:       v.GetString(KeyAuthBaseURL),
			ShareLinksBaseURL: v.GetString(KeyShareLinksBaseURL),
		},
		Detection: DetectionConfig{
			RateLimitPhrases:   v.GetStringSlice(KeyRateLimitPhrases),
			AuthFailurePhrases: v.GetStringSlice(KeyAuthFailurePhrases),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{KeyRequestTimeout, &cfg.API.RequestTimeout},
		{KeyRelaunchInterval, &cfg.Session.RelaunchInterval},
		{KeyLaunchDelay, &cfg.Session.LaunchDelay},
		{KeyRetryBase, &cfg.Session.RetryBase},
		{KeyRetryCeiling, &cfg.Session.RetryCeiling},
		{KeyPlayerGrace, &cfg.Session.PlayerGrace},
	}
	for _, field := range durations {
		d, err := parseDuration(v.GetString(field.key))
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", field.key, err)
		}
		*field.target = d
	}

	if cfg.Secrets.Dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.Secrets.Dir = filepath.Join(homeDir, configDir, "secrets")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Session.RelaunchInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyRelaunchInterval))
	}
	if c.Session.LaunchDelay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyLaunchDelay))
	}
	if c.Session.RetryBase <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyRetryBase))
	}
	if c.Session.RetryCeiling < domain.MinRetryDelay || c.Session.RetryCeiling > domain.MaxRetryDelay {
		errs = append(errs, fmt.Errorf("%s must be between %s and %s", KeyRetryCeiling, domain.MinRetryDelay, domain.MaxRetryDelay))
	}
	if c.Session.PlayerGrace < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyPlayerGrace))
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyRequestTimeout))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%s must be text or json, got %q", KeyLogFormat, c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SessionConfig seeds a session config with the configured durations.
func (c *Config) SessionConfig() domain.SessionConfig {
	return domain.SessionConfig{
		RelaunchInterval: c.Session.RelaunchInterval,
		LaunchDelay:      c.Session.LaunchDelay,
		RetryBase:        c.Session.RetryBase,
		RetryCeiling:     c.Session.RetryCeiling,
		PlayerGrace:      c.Session.PlayerGrace,
	}
}

// parseDuration accepts Go durations ("19m") and bare seconds ("300").
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", raw)
}
