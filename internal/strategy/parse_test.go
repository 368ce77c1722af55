package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHorizonMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 36},
		{"Court terme", 18},
		{"< 2 ans", 18},
		{"1-2 ans", 18},
		{"2-5 ans", 42},
		{"Moyen terme", 42},
		{"5-10 ans", 84},
		{"> 10 ans", 144},
		{"Long terme", 144},
		{"Plus de 10 ans", 120}, // leading int, years x 12
		{"7 ans", 84},
		{"120 mois", 120}, // above 30: already months
		{"sans idée", 36},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseHorizonMonths(tt.in))
		})
	}
}

func TestParseLossPct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 20},
		{"45%", 45},
		{"Très élevée", 45},
		{"La moitié de mon capital", 45},
		{"30% ou plus", 30},
		{"Élevée", 30},
		{"Une perte importante", 30},
		{"20%", 20},
		{"15%", 15},
		{"Modérée", 15},
		{"10%", 10},
		{"5%", 5},
		{"Faible", 5},
		{"Aucune perte", 0},
		{"7 pour cent", 7}, // leading int fallback
		{"je ne sais pas", 20},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLossPct(tt.in))
		})
	}
}

func TestParseResilienceMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 3},
		{"< 3 mois", 2},
		{"Moins de 3 mois", 2},
		{"1-2 mois", 2},
		{"3-6 mois", 4},
		{"6-12 mois", 9},
		{"> 12 mois", 18},
		{"Plus de 12 mois", 18},
		{"Environ 1 an", 18},
		{"8 mois", 8},
		{"aucune idée", 3},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseResilienceMonths(tt.in))
		})
	}
}
