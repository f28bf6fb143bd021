package overlay

import "testing"

func TestSchemeForDarkImage(t *testing.T) {
	tests := []struct {
		name   string
		colors []string
	}{
		{name: "hex dark", colors: []string{"#1a1a2e", "#16213e"}},
		{name: "named dark", colors: []string{"charcoal", "navy blue"}},
		{name: "spanish dark", colors: []string{"negro", "azul oscuro"}},
		{name: "mixed leaning dark", colors: []string{"#000000", "#111111", "white"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scheme := SchemeFor(tc.colors)
			if !scheme.LightPanel {
				t.Fatalf("dark image %v should get a light panel", tc.colors)
			}
		})
	}
}

func TestSchemeForLightImage(t *testing.T) {
	tests := []struct {
		name   string
		colors []string
	}{
		{name: "hex light", colors: []string{"#fafafa", "#e8e8e8"}},
		{name: "named light", colors: []string{"white", "beige"}},
		{name: "unknown colors fall back to dark panel", colors: []string{"xyzzy"}},
		{name: "empty", colors: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scheme := SchemeFor(tc.colors)
			if scheme.LightPanel {
				t.Fatalf("light image %v should get a dark panel", tc.colors)
			}
		})
	}
}

func TestSchemeForDeterministic(t *testing.T) {
	colors := []string{"#1a1a2e", "beige", "navy"}
	first := SchemeFor(colors)
	for i := 0; i < 10; i++ {
		if got := SchemeFor(colors); got != first {
			t.Fatalf("scheme changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestDarkColorClassification(t *testing.T) {
	tests := []struct {
		color string
		dark  bool
		known bool
	}{
		{color: "#000000", dark: true, known: true},
		{color: "#ffffff", dark: false, known: true},
		{color: "#abc", dark: false, known: true},
		{color: "#12", known: false},
		{color: "dark green", dark: true, known: true},
		{color: "light gray", dark: false, known: true},
		{color: "fuchsia", known: false},
		{color: "", known: false},
	}
	for _, tc := range tests {
		dark, known := darkColor(tc.color)
		if known != tc.known || (known && dark != tc.dark) {
			t.Fatalf("darkColor(%q) = (%v, %v), want (%v, %v)", tc.color, dark, known, tc.dark, tc.known)
		}
	}
}
