package utils

import (
	"math"
	"strings"
)

// RoundMoney rounds to two decimal places.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// ToMinorUnits converts a decimal amount to the gateway's smallest unit.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts a gateway amount back to a decimal amount.
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// NormalizeCurrency lowercases and trims an ISO currency code.
func NormalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// CurrencyAllowed reports whether code is in the allow-list.
func CurrencyAllowed(code string, allowed []string) bool {
	code = NormalizeCurrency(code)
	for _, a := range allowed {
		if NormalizeCurrency(a) == code {
			return true
		}
	}
	return false
}
