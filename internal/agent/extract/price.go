package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// price tolerance applied to one-sided bounds and bare amounts, so "até 80
// mil" still surfaces an 82k car.
const (
	priceCeilingFactor = 1.05
	priceFloorFactor   = 0.95
)

// amount is "R$ 80.000,00", "80.000", "80,5" or "80", with an optional
// mil/k multiplier captured separately by the surrounding patterns.
const amountPat = `(?:r\$\s*)?(\d{1,3}(?:\.\d{3})+|\d+(?:,\d+)?)`

var (
	reBetween = regexp.MustCompile(`\bentre\s+` + amountPat + `\s*(mil|k)?\s+e\s+` + amountPat + `\s*(mil|k)?\b`)
	reFromTo  = regexp.MustCompile(`\bde\s+` + amountPat + `\s*(mil|k)?\s+(?:a|ate)\s+` + amountPat + `\s*(mil|k)?\b`)
	reCeiling = regexp.MustCompile(`\b(?:ate|no maximo|maximo de?|max de?)\s+` + amountPat + `\s*(mil|k)?\b`)
	reFloor   = regexp.MustCompile(`\b(?:acima de|a partir de|mais de|no minimo|minimo de)\s+` + amountPat + `\s*(mil|k)?\b`)
	reBare    = regexp.MustCompile(`\b` + amountPat + `\s*(mil|k)\b`)
)

// PriceRange is a half-open budget signal; zero means unbounded on that side.
type PriceRange struct {
	Min float64
	Max float64
}

// IsZero reports whether no bound was extracted.
func (p PriceRange) IsZero() bool { return p.Min == 0 && p.Max == 0 }

// parseAmount converts a captured numeric token plus its mil/k suffix into
// reais. Values under 1000 with no suffix are assumed to be expressed in
// thousands ("uns 80" means 80 mil).
func parseAmount(num, suffix string) float64 {
	num = strings.ReplaceAll(num, ".", "")
	num = strings.ReplaceAll(num, ",", ".")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return 0
	}
	if suffix != "" {
		return v * 1000
	}
	if v < 1000 {
		return v * 1000
	}
	return v
}

// looksLikeYear guards the "de X a Y" pattern against year ranges: "de 2018
// a 2020" is a year statement, not a budget.
func looksLikeYear(num, suffix string) bool {
	if suffix != "" {
		return false
	}
	y, err := strconv.Atoi(num)
	return err == nil && y >= minYear && y <= maxYear
}

// ExtractPrice pulls a budget signal from normalized text. Priority order:
// explicit range, ceiling, floor, bare amount. The first pattern that
// matches wins; later patterns are not consulted.
func ExtractPrice(text string) PriceRange {
	if m := reBetween.FindStringSubmatch(text); m != nil {
		return rangeFrom(m[1], m[2], m[3], m[4])
	}
	if m := reFromTo.FindStringSubmatch(text); m != nil {
		if looksLikeYear(m[1], m[2]) && looksLikeYear(m[3], m[4]) {
			// fall through, the year extractor owns it
		} else {
			return rangeFrom(m[1], m[2], m[3], m[4])
		}
	}
	if m := reCeiling.FindStringSubmatch(text); m != nil {
		if v := parseAmount(m[1], m[2]); v > 0 && !looksLikeYear(m[1], m[2]) {
			return PriceRange{Max: v * priceCeilingFactor}
		}
	}
	if m := reFloor.FindStringSubmatch(text); m != nil {
		if v := parseAmount(m[1], m[2]); v > 0 && !looksLikeYear(m[1], m[2]) {
			return PriceRange{Min: v * priceFloorFactor}
		}
	}
	if m := reBare.FindStringSubmatch(text); m != nil {
		if v := parseAmount(m[1], m[2]); v > 0 {
			return PriceRange{Min: v * priceFloorFactor, Max: v * priceCeilingFactor}
		}
	}
	return PriceRange{}
}

// rangeFrom builds a verbatim [min,max] from the two captured amounts,
// swapping if the user inverted them.
func rangeFrom(n1, s1, n2, s2 string) PriceRange {
	lo := parseAmount(n1, s1)
	hi := parseAmount(n2, s2)
	if lo == 0 || hi == 0 {
		return PriceRange{}
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return PriceRange{Min: lo, Max: hi}
}
