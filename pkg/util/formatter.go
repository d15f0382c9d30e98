package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatValueFactor prints value with an engineering prefix for display.
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue == 0:
		return strings.TrimSpace(fmt.Sprintf("%.3f %s", value, unit))
	case absValue >= 1e9:
		return fmt.Sprintf("%.3f G%s", value/1e9, unit)
	case absValue >= 1e6:
		return fmt.Sprintf("%.3f M%s", value/1e6, unit)
	case absValue >= 1e3:
		return fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case absValue >= 1:
		return strings.TrimSpace(fmt.Sprintf("%.3f %s", value, unit))
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return strings.TrimSpace(fmt.Sprintf("%.3e %s", value, unit))
	}
}

var spiceSuffixes = []struct {
	factor float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "G"},
	{1e6, "meg"},
	{1e3, "k"},
	{1, ""},
	{1e-3, "m"},
	{1e-6, "u"},
	{1e-9, "n"},
	{1e-12, "p"},
	{1e-15, "f"},
}

// FormatSpice writes value the way a netlist would: 4700 -> "4.7k",
// 1e6 -> "1meg". It round-trips through netlist.ParseValue.
func FormatSpice(value float64) string {
	if value == 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'g', -1, 64)
	}

	absValue := math.Abs(value)
	for _, s := range spiceSuffixes {
		if absValue >= s.factor*(1-1e-12) {
			return strconv.FormatFloat(value/s.factor, 'g', 12, 64) + s.suffix
		}
	}
	return strconv.FormatFloat(value, 'g', 12, 64)
}
