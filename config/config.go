// Package config loads the server and site settings from the environment or
// a local .env file. Nothing in here is mandatory: a missing value leaves the
// matching feature in its "not configured" state.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all settings for the API server and the Drive-backed widgets.
type Config struct {
	Port               string `mapstructure:"PORT"`
	StripeSecretKey    string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookKey   string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	DatabaseURL        string `mapstructure:"DATABASE_URL"`
	RabbitMQURL        string `mapstructure:"RABBITMQ_URL"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	Site Site `mapstructure:",squash"`
}

// Site holds the options the public pages read.
type Site struct {
	OrganizationName   string `mapstructure:"ORGANIZATION_NAME"`
	GoogleAPIKey       string `mapstructure:"GOOGLE_API_KEY"`
	PayPalClientID     string `mapstructure:"PAYPAL_CLIENT_ID"`
	VenmoUsername      string `mapstructure:"VENMO_USERNAME"`
	CashAppUsername    string `mapstructure:"CASHAPP_USERNAME"`
	BoardMembersFolder string `mapstructure:"BOARD_MEMBERS_FOLDER"`
	GalleryFolder      string `mapstructure:"GALLERY_FOLDER"`
	FinancialsFolder   string `mapstructure:"FINANCIALS_FOLDER"`
	PastEventsFolder   string `mapstructure:"PAST_EVENTS_FOLDER"`
	CalendarFeedID     string `mapstructure:"CALENDAR_FEED_ID"`
	CalendarTimezone   string `mapstructure:"CALENDAR_TIMEZONE"`

	BankName          string `mapstructure:"BANK_NAME"`
	BankAccountName   string `mapstructure:"BANK_ACCOUNT_NAME"`
	BankAccountNumber string `mapstructure:"BANK_ACCOUNT_NUMBER"`
	BankRoutingNumber string `mapstructure:"BANK_ROUTING_NUMBER"`
}

// Folder returns the configured folder reference for a widget, keyed by the
// widget's config key (e.g. "GALLERY_FOLDER").
func (s Site) Folder(key string) string {
	switch key {
	case "BOARD_MEMBERS_FOLDER":
		return s.BoardMembersFolder
	case "GALLERY_FOLDER":
		return s.GalleryFolder
	case "FINANCIALS_FOLDER":
		return s.FinancialsFolder
	case "PAST_EVENTS_FOLDER":
		return s.PastEventsFolder
	default:
		return ""
	}
}

// envAliases maps each key to the environment variables consulted for it, in
// order. The REACT_APP_ names let the server share the web client's .env file.
var envAliases = map[string][]string{
	"PORT":                  {"PORT"},
	"STRIPE_SECRET_KEY":     {"STRIPE_SECRET_KEY"},
	"STRIPE_WEBHOOK_SECRET": {"STRIPE_WEBHOOK_SECRET"},
	"DATABASE_URL":          {"DATABASE_URL"},
	"RABBITMQ_URL":          {"RABBITMQ_URL"},
	"LOG_LEVEL":             {"LOG_LEVEL"},
	"CORS_ALLOWED_ORIGINS":  {"CORS_ALLOWED_ORIGINS"},
	"ORGANIZATION_NAME":     {"ORGANIZATION_NAME"},
	"GOOGLE_API_KEY":        {"GOOGLE_API_KEY", "REACT_APP_GOOGLE_API_KEY"},
	"PAYPAL_CLIENT_ID":      {"PAYPAL_CLIENT_ID", "REACT_APP_PAYPAL_CLIENT_ID"},
	"VENMO_USERNAME":        {"VENMO_USERNAME", "REACT_APP_VENMO_USERNAME"},
	"CASHAPP_USERNAME":      {"CASHAPP_USERNAME", "REACT_APP_CASHAPP_USERNAME"},
	"BOARD_MEMBERS_FOLDER":  {"BOARD_MEMBERS_FOLDER", "REACT_APP_BOARD_MEMBERS_FOLDER_URL", "REACT_APP_BOARD_MEMBERS_FOLDER_ID"},
	"GALLERY_FOLDER":        {"GALLERY_FOLDER", "REACT_APP_GDRIVE_FOLDER_URL", "REACT_APP_GDRIVE_FOLDER_ID"},
	"FINANCIALS_FOLDER":     {"FINANCIALS_FOLDER", "REACT_APP_FINANCIALS_FOLDER_URL", "REACT_APP_FINANCIALS_FOLDER_ID"},
	"PAST_EVENTS_FOLDER":    {"PAST_EVENTS_FOLDER", "REACT_APP_PAST_EVENTS_FOLDER_ID"},
	"CALENDAR_FEED_ID":      {"CALENDAR_FEED_ID", "REACT_APP_ICAL_FEED_URL"},
	"CALENDAR_TIMEZONE":     {"CALENDAR_TIMEZONE"},
	"BANK_NAME":             {"BANK_NAME"},
	"BANK_ACCOUNT_NAME":     {"BANK_ACCOUNT_NAME"},
	"BANK_ACCOUNT_NUMBER":   {"BANK_ACCOUNT_NUMBER"},
	"BANK_ROUTING_NUMBER":   {"BANK_ROUTING_NUMBER"},
}

// placeholders are the sample values from the example env files. They are
// treated exactly like an unset variable.
var placeholders = map[string]bool{
	"your_paypal_client_id_here": true,
	"your-venmo-username":        true,
	"your-cashapp-username":      true,
	"your_google_api_key_here":   true,
	"your_folder_id_here":        true,
}

// Load reads configuration from a .env file in the working directory, if
// present, and from the environment.
func Load() (Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, names := range envAliases {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	v.SetDefault("PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("ORGANIZATION_NAME", "Vasavi Seattle")
	v.SetDefault("CALENDAR_TIMEZONE", "America/Los_Angeles")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Site.GoogleAPIKey = clean(cfg.Site.GoogleAPIKey)
	cfg.Site.PayPalClientID = clean(cfg.Site.PayPalClientID)
	cfg.Site.VenmoUsername = clean(cfg.Site.VenmoUsername)
	cfg.Site.CashAppUsername = clean(cfg.Site.CashAppUsername)
	cfg.Site.BoardMembersFolder = clean(cfg.Site.BoardMembersFolder)
	cfg.Site.GalleryFolder = clean(cfg.Site.GalleryFolder)
	cfg.Site.FinancialsFolder = clean(cfg.Site.FinancialsFolder)
	cfg.Site.PastEventsFolder = clean(cfg.Site.PastEventsFolder)
	cfg.Site.CalendarFeedID = clean(cfg.Site.CalendarFeedID)

	return cfg, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func clean(value string) string {
	value = strings.TrimSpace(value)
	if placeholders[value] {
		return ""
	}
	return value
}
