package authorizer

import (
	"github.com/shopspring/decimal"
	"github.com/wishyapp/payments/internal/domain/checkout"
	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

// Config carries the merchant-side constants baked into every payment
// request handed to the device sheet.
type Config struct {
	MerchantID        string
	SupportedNetworks []checkout.Network
	CountryCode       string
	CurrencyCode      string
	SummaryLabel      string
	ShopperResultURL  string
}

// Request is the assembled payment request the device presents. The
// summary items always contain a single line carrying the full amount.
type Request struct {
	MerchantID        string             `json:"merchant_id"`
	SupportedNetworks []checkout.Network `json:"supported_networks"`
	CountryCode       string             `json:"country_code"`
	CurrencyCode      string             `json:"currency_code"`
	SummaryItems      []SummaryItem      `json:"summary_items"`
	ShopperResultURL  string             `json:"shopper_result_url"`
}

type SummaryItem struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// CheckCapability compares the networks the device reports against the
// merchant allow-list. A device with no overlap cannot present the sheet,
// so callers must fail the flow before any checkout is requested.
func (c Config) CheckCapability(deviceNetworks []checkout.Network) error {
	for _, dn := range deviceNetworks {
		for _, sn := range c.SupportedNetworks {
			if dn == sn {
				return nil
			}
		}
	}
	return derrors.ErrSheetUnsupported
}

// BuildRequest assembles the payment request for one attempt.
func (c Config) BuildRequest(amount decimal.Decimal) Request {
	return Request{
		MerchantID:        c.MerchantID,
		SupportedNetworks: c.SupportedNetworks,
		CountryCode:       c.CountryCode,
		CurrencyCode:      c.CurrencyCode,
		SummaryItems: []SummaryItem{
			{Label: c.SummaryLabel, Amount: amount.StringFixed(2)},
		},
		ShopperResultURL: c.ShopperResultURL,
	}
}
