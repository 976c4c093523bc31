package config

import (
	"fmt"
	"strings"

	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/spf13/viper"
)

// countryFile is the on-disk shape of the country rules file:
//
//	countries:
//	  - country: KE
//	    currency: KES
//	    payment_methods: [mobile_money, card]
//	    mobile_providers: [mpesa, airtel]
//	    min_amount: 10
//	    max_amount: 150000
type countryFile struct {
	Countries []models.CountryPaymentConfig `mapstructure:"countries"`
}

// LoadCountryConfigs reads the country payment rules from path (YAML, JSON or
// TOML, by extension). An empty path returns the built-in defaults.
func LoadCountryConfigs(path string) (models.CountryConfigs, error) {
	if path == "" {
		return models.DefaultCountryConfigs(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read country config %s: %w", path, err)
	}

	var file countryFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse country config %s: %w", path, err)
	}

	if err := validateCountryConfigs(file.Countries); err != nil {
		return nil, err
	}
	return models.CountryConfigs(file.Countries), nil
}

func validateCountryConfigs(countries []models.CountryPaymentConfig) error {
	if len(countries) == 0 {
		return fmt.Errorf("country config has no countries")
	}

	seen := make(map[string]bool, len(countries))
	for i, c := range countries {
		cur := strings.ToUpper(c.Currency)
		if cur == "" {
			return fmt.Errorf("country config entry %d has no currency", i)
		}
		if seen[cur] {
			return fmt.Errorf("currency %s configured more than once", cur)
		}
		seen[cur] = true

		if len(c.PaymentMethods) == 0 {
			return fmt.Errorf("currency %s has no payment methods", cur)
		}
		if c.MaxAmount > 0 && c.MinAmount > c.MaxAmount {
			return fmt.Errorf("currency %s has min_amount greater than max_amount", cur)
		}
	}
	return nil
}
