package domain

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// TitleCase trims the value and capitalizes the first letter of every word.
func TitleCase(value string) string {
	fields := strings.Fields(value)
	for i, field := range fields {
		runes := []rune(strings.ToLower(field))
		for j, r := range runes {
			if unicode.IsLetter(r) {
				runes[j] = unicode.ToUpper(r)
				break
			}
		}
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}

// FormatPrice renders a price with two fractional digits and a currency symbol.
func FormatPrice(price decimal.Decimal, currency string) string {
	amount := price.StringFixed(2)
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "", "USD":
		return "$" + amount
	case "EUR":
		return "€" + amount
	case "GBP":
		return "£" + amount
	default:
		return amount + " " + strings.ToUpper(currency)
	}
}
