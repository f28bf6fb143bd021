package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
	"github.com/Tabix-Group/rialtor-plaques/internal/vision"
)

const (
	minFontSize = 12.0
	// The info panel never grows past this share of the image width.
	maxPanelWidthRatio = 0.45
)

// Options configures a Renderer.
type Options struct {
	BrandTag string
	Locale   string
}

// Renderer composes the property information panel and the brand panel onto
// a photo. Render is a pure transformation: bytes in, bytes out, no I/O.
type Renderer struct {
	brandTag string
	locale   string
	font     *sfnt.Font
}

// NewRenderer parses the embedded typeface once and returns a renderer that
// can be shared across goroutines.
func NewRenderer(opts Options) (*Renderer, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font: %w", err)
	}
	brand := opts.BrandTag
	if brand == "" {
		brand = "RIALTOR"
	}
	locale := opts.Locale
	if locale == "" {
		locale = "es"
	}
	return &Renderer{brandTag: brand, locale: locale, font: fnt}, nil
}

// Render decodes src, overlays the information and brand panels, and
// returns the flattened result as PNG bytes. The locale drives the price
// separator; when empty the renderer's configured default applies.
func (r *Renderer) Render(src []byte, property domain.PropertyData, analysis vision.Analysis, locale string) ([]byte, error) {
	if locale == "" {
		locale = r.locale
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("overlay: decode image: %w", err)
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("overlay: empty image")
	}

	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	// Text scales with image width, floored so tiny images stay readable.
	size := float64(width) / 28
	if size < minFontSize {
		size = minFontSize
	}
	regular, err := r.newFace(size)
	if err != nil {
		return nil, err
	}
	strong, err := r.newFace(size * 1.5)
	if err != nil {
		return nil, err
	}

	scheme := SchemeFor(analysis.DominantColors)
	zone := vision.NormalizeZone(analysis.SuggestedOverlayZone)
	lines := PanelLines(property, locale)

	if err := r.drawInfoPanel(out, lines, scheme, zone, regular, strong); err != nil {
		return nil, err
	}
	if err := r.drawBrandPanel(out, scheme, oppositeZone(zone), regular); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("overlay: encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) newFace(size float64) (font.Face, error) {
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("overlay: build font face: %w", err)
	}
	return face, nil
}

func (r *Renderer) drawInfoPanel(dst *image.RGBA, lines []Line, scheme Scheme, zone string, regular, strong font.Face) error {
	bounds := dst.Bounds()
	width := bounds.Dx()
	margin := max(width/40, 8)
	padding := max(width/50, 10)
	maxTextWidth := int(float64(width)*maxPanelWidthRatio) - 2*padding
	if maxTextWidth < 40 {
		maxTextWidth = max(width-2*margin-2*padding, 20)
	}

	contentWidth := 0
	contentHeight := 0
	gap := lineGap(regular)
	texts := make([]string, len(lines))
	for i, line := range lines {
		face := regular
		if line.Strong {
			face = strong
		}
		texts[i] = truncateToWidth(line.Text, face, maxTextWidth)
		if w := measure(face, texts[i]); w > contentWidth {
			contentWidth = w
		}
		contentHeight += faceHeight(face)
		if i > 0 {
			contentHeight += gap
		}
	}

	panelW := contentWidth + 2*padding
	panelH := contentHeight + 2*padding
	rect := anchorRect(bounds, zone, margin, panelW, panelH)
	fillRect(dst, rect, scheme.Panel)

	y := rect.Min.Y + padding
	for i, line := range lines {
		face := regular
		if line.Strong {
			face = strong
		}
		drawText(dst, texts[i], face, scheme.Text, rect.Min.X+padding, y+faceAscent(face))
		y += faceHeight(face)
		if i < len(lines)-1 {
			y += gap
		}
	}
	return nil
}

func (r *Renderer) drawBrandPanel(dst *image.RGBA, scheme Scheme, zone string, face font.Face) error {
	bounds := dst.Bounds()
	margin := max(bounds.Dx()/40, 8)
	padding := max(bounds.Dx()/80, 6)

	w := measure(face, r.brandTag) + 2*padding
	h := faceHeight(face) + 2*padding
	rect := anchorRect(bounds, zone, margin, w, h)

	// The brand panel inverts the scheme so it stands apart from the info panel.
	panel, text := scheme.Text, scheme.Panel
	panel.A = 0xeb
	text.A = 0xff
	fillRect(dst, rect, panel)
	drawText(dst, r.brandTag, face, text, rect.Min.X+padding, rect.Min.Y+padding+faceAscent(face))
	return nil
}

// anchorRect places a w×h rectangle in the given corner, clamped to the
// image bounds.
func anchorRect(bounds image.Rectangle, zone string, margin, w, h int) image.Rectangle {
	if w > bounds.Dx()-2*margin {
		w = bounds.Dx() - 2*margin
	}
	if h > bounds.Dy()-2*margin {
		h = bounds.Dy() - 2*margin
	}

	var x, y int
	switch zone {
	case vision.ZoneTopLeft:
		x, y = bounds.Min.X+margin, bounds.Min.Y+margin
	case vision.ZoneTopRight:
		x, y = bounds.Max.X-margin-w, bounds.Min.Y+margin
	case vision.ZoneBottomRight:
		x, y = bounds.Max.X-margin-w, bounds.Max.Y-margin-h
	default: // bottom-left
		x, y = bounds.Min.X+margin, bounds.Max.Y-margin-h
	}
	return image.Rect(x, y, x+w, y+h)
}

func oppositeZone(zone string) string {
	switch zone {
	case vision.ZoneTopLeft:
		return vision.ZoneBottomRight
	case vision.ZoneTopRight:
		return vision.ZoneBottomLeft
	case vision.ZoneBottomRight:
		return vision.ZoneTopLeft
	default:
		return vision.ZoneTopRight
	}
}

func fillRect(dst *image.RGBA, rect image.Rectangle, c color.Color) {
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Over)
}

func drawText(dst *image.RGBA, text string, face font.Face, c color.Color, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func measure(face font.Face, text string) int {
	return font.MeasureString(face, text).Ceil()
}

func faceHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

func faceAscent(face font.Face) int {
	return face.Metrics().Ascent.Ceil()
}

func lineGap(face font.Face) int {
	return max(faceHeight(face)/4, 2)
}

// truncateToWidth shortens text with an ellipsis until it fits maxWidth.
func truncateToWidth(text string, face font.Face, maxWidth int) string {
	if measure(face, text) <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if measure(face, candidate) <= maxWidth {
			return candidate
		}
	}
	return "…"
}
