package strategy

import (
	"strings"

	"github.com/patrimoine-app/patrimoine/internal/frtext"
)

// Parser defaults, applied when the raw input is absent or unparseable.
const (
	defaultHorizonMonths    = 36
	defaultLossPct          = 20
	defaultResilienceMonths = 3
)

// ParseHorizonMonths converts a free-text horizon answer to months. Substring
// rules run first (order matters, first match wins); otherwise the first
// integer in the answer is read as years when it is 30 or less, as months
// above that.
func ParseHorizonMonths(raw string) int {
	s := frtext.Fold(strings.TrimSpace(raw))
	if s == "" {
		return defaultHorizonMonths
	}
	switch {
	case strings.Contains(s, "< 2"), strings.Contains(s, "<2"),
		strings.Contains(s, "1-2"), strings.Contains(s, "court"):
		return 18
	case strings.Contains(s, "2-5"), strings.Contains(s, "moyen"):
		return 42
	case strings.Contains(s, "5-10"):
		return 84
	case strings.Contains(s, "> 10"), strings.Contains(s, ">10"), strings.Contains(s, "long"):
		return 144
	}
	if n, ok := frtext.LeadingInt(s); ok {
		if n <= 30 {
			return n * 12 // small values are years
		}
		return n
	}
	return defaultHorizonMonths
}

// ParseLossPct converts a free-text maximum acceptable loss to a percentage
// in {0,5,10,15,20,30,45}. Quantitative buckets are checked largest first so
// "45%" never falls into the "5" bucket; qualitative French phrases share the
// same buckets. Unmatched answers fall back to their first integer, then to
// the default.
func ParseLossPct(raw string) int {
	s := frtext.Fold(strings.TrimSpace(raw))
	if s == "" {
		return defaultLossPct
	}
	switch {
	case strings.Contains(s, "45"), strings.Contains(s, "tres eleve"), strings.Contains(s, "la moitie"):
		return 45
	case strings.Contains(s, "30"), strings.Contains(s, "eleve"), strings.Contains(s, "important"):
		return 30
	case strings.Contains(s, "20"):
		return 20
	case strings.Contains(s, "15"), strings.Contains(s, "modere"):
		return 15
	case strings.Contains(s, "10"):
		return 10
	case strings.Contains(s, "5%"), strings.Contains(s, "faible"):
		return 5
	case strings.Contains(s, "aucun"), strings.Contains(s, "rien"), strings.Contains(s, "zero"):
		return 0
	}
	if n, ok := frtext.LeadingInt(s); ok {
		return n
	}
	return defaultLossPct
}

// ParseResilienceMonths converts a free-text financial resilience answer to
// months of expenses covered.
func ParseResilienceMonths(raw string) int {
	s := frtext.Fold(strings.TrimSpace(raw))
	if s == "" {
		return defaultResilienceMonths
	}
	switch {
	case strings.Contains(s, "< 3"), strings.Contains(s, "<3"),
		strings.Contains(s, "moins de 3"), strings.Contains(s, "1-2"):
		return 2
	case strings.Contains(s, "3-6"):
		return 4
	case strings.Contains(s, "6-12"):
		return 9
	case strings.Contains(s, "> 12"), strings.Contains(s, ">12"),
		strings.Contains(s, "plus de 12"), strings.Contains(s, "1 an"):
		return 18
	}
	if n, ok := frtext.LeadingInt(s); ok {
		return n
	}
	return defaultResilienceMonths
}
