package netlist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var unitMap = map[string]float64{
	"t":   1e12,  // tera
	"g":   1e9,   // giga
	"meg": 1e6,   // mega
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

// SPICE suffixes are case-insensitive, so "M" is milli and "MEG" is mega.
// Trailing unit letters (ohm, F, V, s) are ignored.
var valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:e[-+]?\d+)?)(meg|[tgkmunpf])?([a-z]*)$`)

// ParseValue - Parse value and factor. 1k -> 1000
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(val)))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if multiplier, ok := unitMap[matches[2]]; ok {
		num *= multiplier
	}

	return num, nil
}
