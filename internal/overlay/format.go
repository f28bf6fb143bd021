package overlay

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
)

// PricePlaceholder is rendered when the price cannot be parsed as a
// positive number.
const PricePlaceholder = "Consultar"

// Line is one row of the plaque information panel.
type Line struct {
	Text   string
	Strong bool
}

// FormatPrice renders the listing price with a locale-aware thousands
// separator, prefixed by the currency code when present. All non-digit
// characters are stripped before parsing; a non-positive or unparsable
// value renders as the placeholder.
func FormatPrice(raw, currency, locale string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil || n <= 0 {
		return PricePlaceholder
	}
	p := message.NewPrinter(localeTag(locale))
	formatted := p.Sprintf("%d", n)
	if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" {
		return c + " " + formatted
	}
	return formatted
}

// PanelLines builds the ordered panel rows for the given property data.
// Absent optional fields are omitted; the price row is always present.
func PanelLines(p domain.PropertyData, locale string) []Line {
	lines := []Line{{Text: FormatPrice(p.Price, p.Currency, locale), Strong: true}}
	if t := strings.TrimSpace(p.PropertyType); t != "" {
		lines = append(lines, Line{Text: t})
	}
	if r := strings.TrimSpace(p.Rooms); r != "" {
		lines = append(lines, Line{Text: roomsLabel(r)})
	}
	if a := strings.TrimSpace(p.Area); a != "" {
		lines = append(lines, Line{Text: areaLabel(a)})
	}
	if addr := strings.TrimSpace(p.Address); addr != "" {
		lines = append(lines, Line{Text: "Ubicación: " + addr})
	}
	if c := strings.TrimSpace(p.Contact); c != "" {
		lines = append(lines, Line{Text: "Contacto: " + c})
	}
	if e := strings.TrimSpace(p.Email); e != "" {
		lines = append(lines, Line{Text: e})
	}
	return lines
}

func roomsLabel(rooms string) string {
	if allDigits(rooms) {
		return fmt.Sprintf("%s amb.", rooms)
	}
	return rooms
}

func areaLabel(area string) string {
	if allDigits(area) {
		return fmt.Sprintf("%s m²", area)
	}
	return area
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func localeTag(locale string) language.Tag {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en":
		return language.English
	case "pt":
		return language.Portuguese
	default:
		return language.Spanish
	}
}
