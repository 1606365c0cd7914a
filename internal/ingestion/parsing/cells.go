package parsing

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

var errorCellValues = map[string]struct{}{
	"#N/A":          {},
	"#REF!":         {},
	"#VALUE!":       {},
	"#DIV/0!":       {},
	"#NAME?":        {},
	"#NUM!":         {},
	"#NULL!":        {},
	"#GETTING_DATA": {},
	"#SPILL!":       {},
	"#CALC!":        {},
}

var placeholderValues = map[string]struct{}{
	"-":    {},
	"--":   {},
	"n/a":  {},
	"na":   {},
	"nan":  {},
	"nil":  {},
	"none": {},
}

// isErrorCell reports whether the cell holds a native spreadsheet error.
func isErrorCell(cell string) bool {
	_, ok := errorCellValues[strings.ToUpper(strings.TrimSpace(cell))]
	return ok
}

// cleanText trims a free-text cell and maps placeholders and error cells to "".
func cleanText(cell string) string {
	text := strings.Join(strings.Fields(cell), " ")
	if text == "" || isErrorCell(text) {
		return ""
	}
	if _, ok := placeholderValues[strings.ToLower(text)]; ok {
		return ""
	}
	return text
}

// parseNumber reads a numeric cell, tolerating thousands separators and unit suffixes.
// NaN and infinities (pandas exports write "nan") are unparseable.
func parseNumber(cell string) (float64, bool) {
	v := strings.TrimSpace(cell)
	if v == "" || isErrorCell(v) {
		return 0, false
	}
	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, " ", "")
	lower := strings.ToLower(v)
	for _, suffix := range []string{"mwp", "mva", "mw", "%"} {
		if strings.HasSuffix(lower, suffix) {
			v = v[:len(v)-len(suffix)]
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// numberPtr returns a pointer to the parsed value, or nil when unparseable.
func numberPtr(cell string) *float64 {
	f, ok := parseNumber(cell)
	if !ok {
		return nil
	}
	return &f
}

// carryStation folds one row into the station accumulator: a non-empty label
// replaces the carried station, an empty one inherits it.
func carryStation(carried, cell string) string {
	if label := cleanText(cell); label != "" {
		return label
	}
	return carried
}

// StationKey normalizes a station name for grouping and matching.
func StationKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UnitKey normalizes a unit identifier: "Unit 01", "U-1" and "1" share a key.
func UnitKey(id string) string {
	key := StationKey(id)
	switch {
	case strings.HasPrefix(key, "UNIT") && len(key) > 4:
		key = key[4:]
	case len(key) > 1 && key[0] == 'U' && key[1] >= '0' && key[1] <= '9':
		key = key[1:]
	}
	if allDigits(key) {
		trimmed := strings.TrimLeft(key, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		key = trimmed
	}
	return key
}

func allDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func ptr(v float64) *float64 { return &v }
