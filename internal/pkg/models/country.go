package models

import "strings"

// CountryPaymentConfig describes which payments are accepted for a currency
type CountryPaymentConfig struct {
	Country         string          `json:"country" mapstructure:"country"`
	Currency        string          `json:"currency" mapstructure:"currency"`
	PaymentMethods  []PaymentMethod `json:"paymentMethods" mapstructure:"payment_methods"`
	MobileProviders []string        `json:"mobileProviders,omitempty" mapstructure:"mobile_providers"`
	MinAmount       float64         `json:"minAmount" mapstructure:"min_amount"`
	MaxAmount       float64         `json:"maxAmount" mapstructure:"max_amount"`
}

// SupportsMethod reports whether method is allowed
func (c CountryPaymentConfig) SupportsMethod(method PaymentMethod) bool {
	for _, m := range c.PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// SupportsProvider reports whether provider is allowed. An empty provider
// list accepts any provider.
func (c CountryPaymentConfig) SupportsProvider(provider string) bool {
	if len(c.MobileProviders) == 0 {
		return true
	}
	for _, p := range c.MobileProviders {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}

// CountryConfigs is the set of supported countries
type CountryConfigs []CountryPaymentConfig

// ForCurrency returns the config whose currency matches cur
func (cs CountryConfigs) ForCurrency(cur string) (CountryPaymentConfig, bool) {
	for _, c := range cs {
		if strings.EqualFold(c.Currency, cur) {
			return c, true
		}
	}
	return CountryPaymentConfig{}, false
}

// DefaultCountryConfigs returns the built-in country rules
func DefaultCountryConfigs() CountryConfigs {
	return CountryConfigs{
		{
			Country:         "KE",
			Currency:        "KES",
			PaymentMethods:  []PaymentMethod{PaymentMethodMobileMoney, PaymentMethodCard},
			MobileProviders: []string{"mpesa", "airtel"},
			MinAmount:       10,
			MaxAmount:       150000,
		},
		{
			Country:        "NG",
			Currency:       "NGN",
			PaymentMethods: []PaymentMethod{PaymentMethodCard, PaymentMethodBankTransfer},
			MinAmount:      100,
			MaxAmount:      5000000,
		},
		{
			Country:         "GH",
			Currency:        "GHS",
			PaymentMethods:  []PaymentMethod{PaymentMethodMobileMoney, PaymentMethodCard},
			MobileProviders: []string{"mtn", "vodafone", "airteltigo"},
			MinAmount:       1,
			MaxAmount:       5000,
		},
	}
}
