// File: utils/money.go
package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies are the ISO codes the processor treats as having no
// minor unit (amounts are already in the smallest denomination).
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

// MinorUnitExponent returns how many decimal places the currency carries.
func MinorUnitExponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// RoundMoney rounds an amount half-up at the currency's minor-unit precision.
func RoundMoney(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnitExponent(currency))
}

// ToMinorUnits converts a decimal amount to the processor's integer minor
// units (e.g. 12.34 USD -> 1234).
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	exp := MinorUnitExponent(currency)
	return amount.Round(exp).Shift(exp).IntPart()
}

// FromMinorUnits converts processor minor units back to a decimal amount.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-MinorUnitExponent(currency))
}

// ValidCurrency reports whether code looks like a 3-letter ISO currency code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
