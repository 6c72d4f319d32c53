package services

import (
	"strings"
	"testing"

	"github.com/anidigital/harvest-hub/internal/domain"
)

func TestPreview(t *testing.T) {
	cases := []struct {
		c    domain.Content
		name string
		want string
	}{
		{domain.TextContent("hello"), "", "hello"},
		{domain.TextContent(strings.Repeat("x", 120)), "", strings.Repeat("x", PreviewMaxRunes)},
		{domain.ImageContent("https://a/b.png", ""), "", "📷 Photo"},
		{domain.ImageContent("https://a/b.png", "ripe"), "", "ripe"},
		{domain.OrderContent("o1"), "Tomatoes", "🧾 Order: Tomatoes"},
	}
	for _, tc := range cases {
		if got := Preview(tc.c, tc.name); got != tc.want {
			t.Errorf("Preview(%+v) = %q; want %q", tc.c, got, tc.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	if got := normalizeText("  a \t  b\n  c   d  "); got != "a b\nc d" {
		t.Fatalf("normalizeText = %q", got)
	}
}

func TestCanonicalCategory(t *testing.T) {
	if got := CanonicalCategory("  root   CROPS "); got != "Root Crops" {
		t.Fatalf("CanonicalCategory = %q", got)
	}
}

func TestPeso(t *testing.T) {
	if got := peso(dec("1250.5")); got != "₱1250.50" {
		t.Fatalf("peso = %q", got)
	}
}
