package paypal

import "fmt"

const IntentCapture = "CAPTURE"

// OrderRequest is the body the buttons send to create an order.
type OrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

type PurchaseUnit struct {
	Amount      Amount `json:"amount"`
	Description string `json:"description,omitempty"`
}

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type ButtonsConfig struct {
	// Value is the decimal amount, e.g. "25" or "12.5".
	Value       string
	Currency    string
	Description string
}

type Buttons struct {
	cfg ButtonsConfig
}

func (b *Buttons) CreateOrder() OrderRequest {
	currency := b.cfg.Currency
	if currency == "" {
		currency = "USD"
	}

	return OrderRequest{
		Intent: IntentCapture,
		PurchaseUnits: []PurchaseUnit{{
			Amount:      Amount{CurrencyCode: currency, Value: b.cfg.Value},
			Description: b.cfg.Description,
		}},
	}
}

// Description labels a donation order. Monthly donations are captured as a
// single order and only labelled as monthly.
func Description(organization, donorName string, monthly bool) string {
	if donorName == "" {
		donorName = "Anonymous"
	}

	cadence := "One-time"
	if monthly {
		cadence = "Monthly"
	}

	return fmt.Sprintf("Donation to %s - %s - %s", organization, donorName, cadence)
}
