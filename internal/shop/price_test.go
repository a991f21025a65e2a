package shop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyvia/catalogsync/internal/shop"
)

func TestNormalizePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    float64
		wantNil bool
	}{
		{name: "plain number", input: "3499.00", want: 3499.00},
		{name: "thousands separator", input: "3,499", want: 3499},
		{name: "currency prefix", input: "SAR 1,999.95", want: 1999.95},
		{name: "multi line fragment", input: "1,249\n.00\nSAR", want: 1249.00},
		{name: "whole and fraction joined", input: "245.75", want: 245.75},
		{name: "no digits", input: "N/A", wantNil: true},
		{name: "empty", input: "", wantNil: true},
		{name: "stray punctuation only", input: "..,,", wantNil: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := shop.NormalizePrice(tt.input)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestCleanImageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "protocol relative",
			input: "//cdn.example.com/img.jpg",
			want:  "https://cdn.example.com/img.jpg",
		},
		{
			name:  "quadruple slashes",
			input: "https:////cdn.example.com/img.jpg",
			want:  "https://cdn.example.com/img.jpg",
		},
		{
			name:  "low resolution thumbnail",
			input: "https://cdn.example.com/p/100_00/img.jpg",
			want:  "https://cdn.example.com/p/100_01/img.jpg",
		},
		{
			name:  "locale query trimmed",
			input: "https://cdn.example.com/img.jpg?locale=ar-SA,ar-&extra=1",
			want:  "https://cdn.example.com/img.jpg?locale=en-GB,en-",
		},
		{
			name:  "encoded fmt query trimmed",
			input: "https://cdn.example.com/img.jpg&amp;fmt=webp&amp;qlt=80",
			want:  "https://cdn.example.com/img.jpg",
		},
		{
			name:  "already clean",
			input: "https://cdn.example.com/img.jpg",
			want:  "https://cdn.example.com/img.jpg",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shop.CleanImageURL(tt.input))
		})
	}
}
