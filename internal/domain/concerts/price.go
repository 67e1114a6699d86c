package concerts

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
)

// FormatAmount renders amount the way tickets and emails print it,
// e.g. "25,00 €" or "1 234,50 €".
func FormatAmount(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}

	grapheme := code
	if c := money.GetCurrency(code); c != nil {
		grapheme = c.Grapheme
	}

	minor := int64(math.Round(amount * 100))
	return money.NewFormatter(2, ",", " ", grapheme, "1 $").Format(minor)
}
