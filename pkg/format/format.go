// Package format renders numbers for Korean-language reports and CLI output.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Korean)

const (
	jo  = 1_000_000_000_000 // 조
	eok = 100_000_000       // 억
)

// Number prints v with thousands separators, e.g. 1,234,567
func Number(v float64) string {
	return printer.Sprintf("%.0f", v)
}

// Won prints a KRW amount with 조/억 units, e.g. 3조 2,500억원
func Won(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	switch {
	case v >= jo:
		j := math.Floor(v / jo)
		e := math.Floor((v - j*jo) / eok)
		if e == 0 {
			return printer.Sprintf("%s%.0f조원", sign, j)
		}
		return printer.Sprintf("%s%.0f조 %.0f억원", sign, j, e)
	case v >= eok:
		return printer.Sprintf("%s%.0f억원", sign, math.Floor(v/eok))
	default:
		return printer.Sprintf("%s%.0f원", sign, v)
	}
}

// Percent prints a ratio as a percentage with the given precision (0.1234 → 12.34%)
func Percent(ratio float64, precision int) string {
	return fmt.Sprintf("%.*f%%", precision, ratio*100)
}

// Signed prints a ratio as a signed percentage (+3.20%, -1.05%)
func Signed(ratio float64) string {
	return fmt.Sprintf("%+.2f%%", ratio*100)
}
