package vision

import (
	"context"
	"strings"
)

// Overlay zones an analysis may suggest. Unknown values normalize to the
// default zone.
const (
	ZoneBottomLeft  = "bottom-left"
	ZoneBottomRight = "bottom-right"
	ZoneTopLeft     = "top-left"
	ZoneTopRight    = "top-right"
)

// Analysis is the structured description of one property photo. It is
// ephemeral: produced per source image, consumed by the renderer, then
// discarded.
type Analysis struct {
	SubjectType          string   `json:"subject_type"`
	VisualFeatures       []string `json:"visual_features"`
	SuggestedOverlayZone string   `json:"suggested_overlay_zone"`
	Style                string   `json:"style"`
	DominantColors       []string `json:"dominant_colors"`
}

// Source tags whether an analysis came from the model or is the built-in
// fallback. The tag exists for observability only; the renderer behaves
// identically either way.
type Source string

const (
	SourceModel   Source = "model"
	SourceDefault Source = "default"
)

// Result pairs an analysis with its provenance.
type Result struct {
	Analysis Analysis
	Source   Source
}

// DefaultResult returns the fallback analysis substituted when the model is
// unreachable or its response cannot be parsed.
func DefaultResult() Result {
	return Result{
		Source: SourceDefault,
		Analysis: Analysis{
			SubjectType:          "property",
			VisualFeatures:       []string{"exterior"},
			SuggestedOverlayZone: ZoneBottomLeft,
			Style:                "standard",
			DominantColors:       []string{"#808080", "#f5f5f5"},
		},
	}
}

// NormalizeZone maps free-form zone suggestions onto a supported corner.
func NormalizeZone(zone string) string {
	normalized := strings.ToLower(strings.TrimSpace(zone))
	switch normalized {
	case ZoneBottomLeft, ZoneBottomRight, ZoneTopLeft, ZoneTopRight:
		return normalized
	default:
		return ZoneBottomLeft
	}
}

// Analyzer classifies a property photo and recommends overlay placement and
// colors. Implementations may fail with transport errors; parse problems are
// normalized to DefaultResult instead.
type Analyzer interface {
	Analyze(ctx context.Context, imageURL string) (Result, error)
}
