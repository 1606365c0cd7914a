package parsing

import (
	"regexp"
	"strconv"
	"strings"

	ingestion "genfleet-cloud/internal/ingestion/domain"
)

// peakPattern matches "NNN.NN(MMM.MM)" with an optional parenthesized part.
var peakPattern = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?)\s*(?:\(\s*([-+]?\d+(?:\.\d+)?)\s*\))?$`)

// ParsePeak splits a peak-demand cell into on-bars and suppressed demand.
// "202.08(225.58)" yields both, "181" only on-bars, "-" and junk neither.
func ParsePeak(cell string) ingestion.Peak {
	v := strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if v == "" || v == "-" || isErrorCell(v) {
		return ingestion.Peak{}
	}
	m := peakPattern.FindStringSubmatch(v)
	if m == nil {
		return ingestion.Peak{}
	}
	var peak ingestion.Peak
	if f, err := strconv.ParseFloat(m[1], 64); err == nil {
		peak.OnBarsMW = &f
	}
	if m[2] != "" {
		if f, err := strconv.ParseFloat(m[2], 64); err == nil {
			peak.SuppressedMW = &f
		}
	}
	return peak
}
