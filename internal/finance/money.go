package finance

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatIDR renders an amount as rupiah with Indonesian digit grouping,
// e.g. 1500000 menjadi "Rp1.500.000".
func FormatIDR(amount float64) string {
	return idPrinter.Sprintf("Rp%v", number.Decimal(amount, number.MaxFractionDigits(0)))
}
