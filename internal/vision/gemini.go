package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const analyzeInstruction = `You are a real-estate photography analyst. Classify the property image and recommend overlay placement. Respond strictly with JSON matching this schema: {"subject_type":string,"visual_features":string[],"suggested_overlay_zone":"bottom-left"|"bottom-right"|"top-left"|"top-right","style":string,"dominant_colors":string[]}. dominant_colors must list the two or three most prominent colors as hex codes or plain English color names. suggested_overlay_zone must be the emptiest corner of the image.`

// GeminiOptions controls how the analyzer client is configured.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// GeminiAnalyzer calls the Gemini generateContent API with a property photo
// and a fixed classification instruction. Transport and HTTP failures are
// returned to the caller; responses that cannot be parsed into the expected
// shape are normalized to DefaultResult.
type GeminiAnalyzer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewGeminiAnalyzer constructs the analyzer with sane defaults.
func NewGeminiAnalyzer(opts GeminiOptions) *GeminiAnalyzer {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &GeminiAnalyzer{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"fileData,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// Analyze classifies the image behind imageURL. When the service responds
// but the content is not the expected JSON shape, the default analysis is
// substituted and no error is returned.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, imageURL string) (Result, error) {
	if g.apiKey == "" {
		return Result{}, fmt.Errorf("vision: gemini api key not configured")
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{FileData: &geminiFileData{MimeType: "image/jpeg", FileURI: imageURL}},
				{Text: analyzeInstruction},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.2,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}

	var response geminiResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(g.model))
	if err := g.invoke(ctx, path, payload, &response); err != nil {
		return Result{}, err
	}

	text := candidateText(response)
	analysis, ok := parseAnalysis(text)
	if !ok {
		g.logger.Warn().
			Str("image_url", imageURL).
			Str("model", g.model).
			Msg("vision: unparsable analysis response, using default")
		return DefaultResult(), nil
	}
	return Result{Analysis: analysis, Source: SourceModel}, nil
}

func (g *GeminiAnalyzer) invoke(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("vision: marshal request: %w", err)
	}
	endpoint := g.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vision: create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", g.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vision: invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("vision: gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("vision: gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vision: decode response: %w", err)
	}
	return nil
}

func candidateText(resp geminiResponse) string {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

// parseAnalysis decodes the model output, tolerating markdown code fences
// around the JSON body. A response missing subject_type or dominant colors
// does not count as a usable analysis.
func parseAnalysis(text string) (Analysis, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return Analysis{}, false
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return Analysis{}, false
	}
	if strings.TrimSpace(analysis.SubjectType) == "" || len(analysis.DominantColors) == 0 {
		return Analysis{}, false
	}
	analysis.SuggestedOverlayZone = NormalizeZone(analysis.SuggestedOverlayZone)
	return analysis, true
}
