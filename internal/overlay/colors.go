package overlay

import (
	"image/color"
	"strconv"
	"strings"
)

// Scheme is the panel/text color pairing chosen for one plaque. The choice
// is binary: a dark photo gets a light panel with dark text and vice versa,
// so rendered text stays legible on any background.
type Scheme struct {
	Panel      color.NRGBA
	Text       color.NRGBA
	LightPanel bool
}

var (
	lightScheme = Scheme{
		Panel:      color.NRGBA{R: 0xf5, G: 0xf5, B: 0xf4, A: 0xeb},
		Text:       color.NRGBA{R: 0x1c, G: 0x1c, B: 0x1e, A: 0xff},
		LightPanel: true,
	}
	darkScheme = Scheme{
		Panel:      color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xeb},
		Text:       color.NRGBA{R: 0xfa, G: 0xfa, B: 0xf9, A: 0xff},
		LightPanel: false,
	}
)

// SchemeFor picks the color pairing from the dominant colors an analysis
// describes. The decision is deterministic for a given input.
func SchemeFor(dominantColors []string) Scheme {
	dark, known := 0, 0
	for _, c := range dominantColors {
		isDark, ok := darkColor(c)
		if !ok {
			continue
		}
		known++
		if isDark {
			dark++
		}
	}
	if known > 0 && dark*2 >= known {
		return lightScheme
	}
	return darkScheme
}

var darkColorWords = []string{
	"black", "dark", "navy", "charcoal", "brown", "maroon", "slate",
	"negro", "oscuro", "marrón", "marino",
}

var lightColorWords = []string{
	"white", "light", "beige", "cream", "ivory", "sand", "sky",
	"blanco", "claro", "crema", "celeste",
}

// darkColor classifies a described color as dark or light. Hex values are
// judged by relative luminance; names by keyword. The second return value
// is false when the description is not recognized.
func darkColor(described string) (bool, bool) {
	s := strings.ToLower(strings.TrimSpace(described))
	if s == "" {
		return false, false
	}
	if strings.HasPrefix(s, "#") {
		if lum, ok := hexLuminance(s); ok {
			return lum < 128, true
		}
		return false, false
	}
	for _, w := range darkColorWords {
		if strings.Contains(s, w) {
			return true, true
		}
	}
	for _, w := range lightColorWords {
		if strings.Contains(s, w) {
			return false, true
		}
	}
	return false, false
}

func hexLuminance(s string) (float64, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	r := float64((v >> 16) & 0xff)
	g := float64((v >> 8) & 0xff)
	b := float64(v & 0xff)
	return 0.2126*r + 0.7152*g + 0.0722*b, true
}
