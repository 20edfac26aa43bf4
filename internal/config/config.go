package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"freeturn/internal/cv"
	"freeturn/internal/email"
	"freeturn/internal/workers"
)

// Config is the full application configuration shared by the server, the
// sync service and the CLI.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Mailbox MailboxConfig
	Sync    SyncConfig
	CV      cv.Defaults
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string
	Port string
}

// DBConfig configures the SQLite database.
type DBConfig struct {
	Path string
}

// MailboxConfig configures the monitored mail accounts.
type MailboxConfig struct {
	// Label is the mailbox label that scopes synchronization, e.g. "CRM".
	Label string
	// From is the address outbound replies are sent from.
	From     string
	Accounts []workers.Account
}

// SyncConfig configures the periodic synchronization loop.
type SyncConfig struct {
	Interval time.Duration
	// MaxMessages caps how many messages one sync run pulls per mailbox.
	// Zero means no limit.
	MaxMessages int
	RunOnStart  bool
	GenerateCVs bool
	// RenderPDFs enables headless-browser PDF rendering for generated CVs.
	// Off by default since it needs a Chrome binary on the host.
	RenderPDFs bool
}

// Address returns the host:port the HTTP server binds to.
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// SyncerConfig converts the mailbox section into the sync engine's view of it.
func (c *Config) SyncerConfig() *workers.SyncConfig {
	return &workers.SyncConfig{
		MailboxLabel: c.Mailbox.Label,
		MaxMessages:  c.Sync.MaxMessages,
		Accounts:     c.Mailbox.Accounts,
	}
}

// Load loads configuration using a fresh Viper instance.
func Load() (*Config, error) {
	return LoadWithViper(viper.New())
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	return LoadWithViper(v)
}

// LoadWithViper loads configuration using the given Viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	setupEnvBinding(v)

	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := &Config{}
	if err := unmarshalConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for all configuration sections
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")

	v.SetDefault("db.path", "./freeturn.db")

	v.SetDefault("mailbox.label", "CRM")
	v.SetDefault("mailbox.from", "")

	v.SetDefault("sync.interval", "5m")
	v.SetDefault("sync.max_messages", 0)
	v.SetDefault("sync.run_on_start", true)
	v.SetDefault("sync.generate_cvs", true)
	v.SetDefault("sync.render_pdfs", false)

	v.SetDefault("cv.full_name", "")
	v.SetDefault("cv.title", "")
	v.SetDefault("cv.experience_overview", "")
	v.SetDefault("cv.education_overview", "")
	v.SetDefault("cv.contact_details", "")
	v.SetDefault("cv.languages_overview", "")
	v.SetDefault("cv.rate_overview", "")
	v.SetDefault("cv.working_permit", "")
}

// setupEnvBinding sets up environment variable binding
func setupEnvBinding(v *viper.Viper) {
	v.SetEnvPrefix("FREETURN")
	v.AutomaticEnv()

	envBindings := map[string]string{
		"server.host": "SERVER_HOST",
		"server.port": "SERVER_PORT",

		"db.path": "DB_PATH",

		"mailbox.label": "MAILBOX_LABEL",
		"mailbox.from":  "MAILBOX_FROM",

		"sync.interval":     "SYNC_INTERVAL",
		"sync.max_messages": "SYNC_MAX_MESSAGES",
		"sync.run_on_start": "SYNC_RUN_ON_START",
		"sync.generate_cvs": "SYNC_GENERATE_CVS",
		"sync.render_pdfs":  "SYNC_RENDER_PDFS",

		"cv.full_name":           "CV_FULL_NAME",
		"cv.title":               "CV_TITLE",
		"cv.experience_overview": "CV_EXPERIENCE_OVERVIEW",
		"cv.education_overview":  "CV_EDUCATION_OVERVIEW",
		"cv.contact_details":     "CV_CONTACT_DETAILS",
		"cv.languages_overview":  "CV_LANGUAGES_OVERVIEW",
		"cv.rate_overview":       "CV_RATE_OVERVIEW",
		"cv.working_permit":      "CV_WORKING_PERMIT",

		// Single-account shorthand, the common deployment.
		"gmail.account":       "GMAIL_ACCOUNT",
		"gmail.client_id":     "GMAIL_CLIENT_ID",
		"gmail.client_secret": "GMAIL_CLIENT_SECRET",
		"gmail.refresh_token": "GMAIL_REFRESH_TOKEN",
		"gmail.access_token":  "GMAIL_ACCESS_TOKEN",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, "FREETURN_"+envSuffix)
	}
}

// loadConfigFile loads the configuration file if one exists
func loadConfigFile(v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.freeturn")
		v.SetConfigName("freeturn")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; only a parse error is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	return nil
}

// unmarshalConfig unmarshals Viper configuration into the Config struct
func unmarshalConfig(v *viper.Viper, config *Config) error {
	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetString("server.port")

	config.DB.Path = v.GetString("db.path")

	config.Mailbox.Label = v.GetString("mailbox.label")
	config.Mailbox.From = v.GetString("mailbox.from")

	var err error
	config.Sync.Interval, err = time.ParseDuration(v.GetString("sync.interval"))
	if err != nil {
		return fmt.Errorf("invalid sync interval: %w", err)
	}
	config.Sync.MaxMessages = v.GetInt("sync.max_messages")
	config.Sync.RunOnStart = v.GetBool("sync.run_on_start")
	config.Sync.GenerateCVs = v.GetBool("sync.generate_cvs")
	config.Sync.RenderPDFs = v.GetBool("sync.render_pdfs")

	if err := v.UnmarshalKey("cv", &config.CV); err != nil {
		return fmt.Errorf("invalid cv section: %w", err)
	}

	if err := unmarshalAccounts(v, config); err != nil {
		return err
	}

	return nil
}

// unmarshalAccounts reads mail accounts, either the full list from the
// config file or the single-account environment shorthand.
func unmarshalAccounts(v *viper.Viper, config *Config) error {
	type accountEntry struct {
		Name        string `mapstructure:"name"`
		Email       string `mapstructure:"email"`
		Credentials []struct {
			ClientID     string `mapstructure:"client_id"`
			ClientSecret string `mapstructure:"client_secret"`
			RefreshToken string `mapstructure:"refresh_token"`
			AccessToken  string `mapstructure:"access_token"`
		} `mapstructure:"credentials"`
	}

	var entries []accountEntry
	if err := v.UnmarshalKey("mailbox.accounts", &entries); err != nil {
		return fmt.Errorf("invalid mailbox accounts: %w", err)
	}

	for _, entry := range entries {
		account := workers.Account{Name: entry.Name, Email: entry.Email}
		for _, cred := range entry.Credentials {
			account.Credentials = append(account.Credentials, email.OAuthCredential{
				ClientID:     cred.ClientID,
				ClientSecret: cred.ClientSecret,
				RefreshToken: cred.RefreshToken,
				AccessToken:  cred.AccessToken,
			})
		}
		config.Mailbox.Accounts = append(config.Mailbox.Accounts, account)
	}

	// Environment shorthand for the common single-account setup.
	if len(config.Mailbox.Accounts) == 0 && v.GetString("gmail.client_id") != "" {
		name := v.GetString("gmail.account")
		if name == "" {
			name = "default"
		}
		config.Mailbox.Accounts = append(config.Mailbox.Accounts, workers.Account{
			Name: name,
			Credentials: []email.OAuthCredential{{
				ClientID:     v.GetString("gmail.client_id"),
				ClientSecret: v.GetString("gmail.client_secret"),
				RefreshToken: v.GetString("gmail.refresh_token"),
				AccessToken:  v.GetString("gmail.access_token"),
			}},
		})
	}

	return nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Mailbox.Label == "" {
		return fmt.Errorf("mailbox label cannot be empty")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if c.Sync.MaxMessages < 0 {
		return fmt.Errorf("sync max messages cannot be negative")
	}
	for i, account := range c.Mailbox.Accounts {
		if account.Name == "" {
			return fmt.Errorf("mail account %d has no name", i)
		}
		for _, cred := range account.Credentials {
			if err := cred.Validate(); err != nil {
				return fmt.Errorf("mail account %q: %w", account.Name, err)
			}
		}
	}
	return nil
}
