// Package mastr turns raw MaStR registry CSV dumps into the
// deduplicated list of zip-code/municipality strings to geocode.
package mastr

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/egon-data/mastr-geocoding/pkg/geocode"
)

// Address builds the normalized lookup string from a zip code and a
// municipality. The zip is zero-padded to five digits; the whole string
// is NFC-normalized so equal addresses compare equal byte-wise.
func Address(zip int, municipality string) string {
	s := fmt.Sprintf("%05d %s%s", zip, strings.TrimSpace(municipality), geocode.CountrySuffix)
	return norm.NFC.String(s)
}

// ParseZip parses a Postleitzahl cell. The dump stores zips as floats
// ("12345.0") in some technology files.
func ParseZip(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	z := int(f)
	if z < 0 || z > 99999 {
		return 0, false
	}
	return z, true
}

// FromStandort extracts the zip code and municipality from a Standort
// string: everything from the first five-digit numeric token onward.
// It returns false when no such token exists.
func FromStandort(standort string) (string, bool) {
	fields := strings.Fields(standort)
	for i, f := range fields {
		if len(f) != 5 {
			continue
		}
		if _, err := strconv.Atoi(f); err != nil {
			continue
		}
		s := strings.Join(fields[i:], " ") + geocode.CountrySuffix
		return norm.NFC.String(s), true
	}
	return "", false
}
