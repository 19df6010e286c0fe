package donation

import (
	"fmt"
	"net/url"
	"strings"
)

// VenmoURL opens a prefilled Venmo payment to username. Parameters are
// written in Venmo's documented order rather than url.Values' sorted order.
func VenmoURL(username, amount, note string) string {
	return fmt.Sprintf("https://venmo.com/%s?txn=pay&recipients=%s&amount=%s&note=%s",
		url.PathEscape(username),
		url.QueryEscape(username),
		url.QueryEscape(amount),
		url.QueryEscape(note),
	)
}

// CashAppURL opens Cash App on the recipient's $cashtag with the amount filled in.
func CashAppURL(username, amount string) string {
	username = strings.TrimPrefix(username, "$")
	return fmt.Sprintf("https://cash.app/$%s/%s", url.PathEscape(username), url.PathEscape(amount))
}
