package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STRIPE_SECRET_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.Empty(t, cfg.StripeSecretKey)
}

func TestLoad_ReadsClientAliases(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("REACT_APP_GOOGLE_API_KEY", "drive-key")
	t.Setenv("REACT_APP_BOARD_MEMBERS_FOLDER_URL", "https://drive.google.com/drive/folders/BOARD123456")
	t.Setenv("REACT_APP_ICAL_FEED_URL", "events@example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "drive-key", cfg.Site.GoogleAPIKey)
	assert.Equal(t, "https://drive.google.com/drive/folders/BOARD123456", cfg.Site.BoardMembersFolder)
	assert.Equal(t, "events@example.org", cfg.Site.CalendarFeedID)
}

func TestLoad_PrimaryNameWinsOverAlias(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_ID", "primary")
	t.Setenv("REACT_APP_PAYPAL_CLIENT_ID", "alias")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.Site.PayPalClientID)
}

func TestLoad_PlaceholdersCountAsUnset(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_ID", "your_paypal_client_id_here")
	t.Setenv("VENMO_USERNAME", "your-venmo-username")
	t.Setenv("CASHAPP_USERNAME", " your-cashapp-username ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Site.PayPalClientID)
	assert.Empty(t, cfg.Site.VenmoUsername)
	assert.Empty(t, cfg.Site.CashAppUsername)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Config{CORSAllowedOrigins: "https://a.example, https://b.example,,"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestLoad_BankDetails(t *testing.T) {
	t.Setenv("BANK_NAME", "First Bank")
	t.Setenv("BANK_ACCOUNT_NUMBER", "000123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "First Bank", cfg.Site.BankName)
	assert.Equal(t, "000123", cfg.Site.BankAccountNumber)
	assert.Empty(t, cfg.Site.BankRoutingNumber)
}

func TestSite_Folder(t *testing.T) {
	site := Site{GalleryFolder: "gallery-ref", PastEventsFolder: "events-ref"}

	assert.Equal(t, "gallery-ref", site.Folder("GALLERY_FOLDER"))
	assert.Equal(t, "events-ref", site.Folder("PAST_EVENTS_FOLDER"))
	assert.Empty(t, site.Folder("BOARD_MEMBERS_FOLDER"))
	assert.Empty(t, site.Folder("UNKNOWN"))
}
