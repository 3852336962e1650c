// Package currency converts display prices between the currencies of the
// countries the service can search in. Rates are static.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"

	"dealhunter/models"
)

type Code string

const (
	USD Code = "USD"
	BDT Code = "BDT"
	CAD Code = "CAD"
	EUR Code = "EUR"
	GBP Code = "GBP"
)

// ratesPerUSD holds how many units of each currency buy one US dollar.
var ratesPerUSD = map[Code]decimal.Decimal{
	USD: decimal.NewFromInt(1),
	BDT: decimal.RequireFromString("119.50"),
	CAD: decimal.RequireFromString("1.36"),
	EUR: decimal.RequireFromString("0.92"),
	GBP: decimal.RequireFromString("0.79"),
}

var symbols = map[Code]string{
	USD: "$",
	BDT: "৳",
	CAD: "C$",
	EUR: "€",
	GBP: "£",
}

var countryCurrencies = map[string]Code{
	"US": USD,
	"BD": BDT,
	"CA": CAD,
	"DE": EUR,
	"UK": GBP,
	"GB": GBP,
}

// DetectCurrency guesses the currency of a price string from the symbols and
// codes it contains. A bare "$" is treated as USD, as is a string with no
// recognizable marker.
func DetectCurrency(price string) Code {
	upper := strings.ToUpper(price)
	switch {
	case strings.Contains(price, "৳") || strings.Contains(upper, "BDT"):
		return BDT
	case strings.Contains(upper, "CAD") || strings.Contains(upper, "C$"):
		return CAD
	case strings.Contains(price, "£") || strings.Contains(upper, "GBP"):
		return GBP
	case strings.Contains(price, "€") || strings.Contains(upper, "EUR"):
		return EUR
	default:
		return USD
	}
}

// CountryCurrency resolves the currency used in a country, defaulting to USD.
func CountryCurrency(country string) Code {
	if code, ok := countryCurrencies[strings.ToUpper(strings.TrimSpace(country))]; ok {
		return code
	}
	return USD
}

// Symbol returns the display symbol for a currency, or the code itself.
func Symbol(code Code) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return string(code)
}

// Convert re-expresses price in the target currency. The input is returned
// unchanged when both currencies match or no amount can be found.
func Convert(price string, from, to Code) string {
	if price == "" || from == to {
		return price
	}

	token, ok := models.NumericToken(price)
	if !ok {
		return price
	}
	amount, err := decimal.NewFromString(strings.TrimSuffix(token, "."))
	if err != nil {
		return price
	}

	converted := amount.Div(rate(from)).Mul(rate(to))
	return Format(converted, to)
}

// ConvertForCountry converts price into the currency of the given country.
func ConvertForCountry(price string, from Code, country string) string {
	return Convert(price, from, CountryCurrency(country))
}

// Format renders an amount the way prices are shown for that currency: whole
// taka with thousands separators, two decimals for everything else.
func Format(amount decimal.Decimal, code Code) string {
	if code == BDT {
		return Symbol(code) + " " + groupThousands(amount.Round(0).String())
	}
	return Symbol(code) + amount.StringFixed(2)
}

func rate(code Code) decimal.Decimal {
	if r, ok := ratesPerUSD[code]; ok {
		return r
	}
	return decimal.NewFromInt(1)
}

func groupThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
