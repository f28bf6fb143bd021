package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tabix-Group/rialtor-plaques/internal/adapter/repo"
	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
	"github.com/Tabix-Group/rialtor-plaques/internal/http/handlers"
	"github.com/Tabix-Group/rialtor-plaques/internal/http/httpapi"
	"github.com/Tabix-Group/rialtor-plaques/internal/overlay"
	"github.com/Tabix-Group/rialtor-plaques/internal/pipeline"
	"github.com/Tabix-Group/rialtor-plaques/internal/storage"
	"github.com/Tabix-Group/rialtor-plaques/internal/vision"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, imageURL string) (vision.Result, error) {
	return vision.DefaultResult(), nil
}

type testEnv struct {
	server *httptest.Server
	jobs   *repo.PlaqueJobRepositoryMem
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	jobs := repo.NewMemoryPlaqueJobRepository()
	blobs, err := storage.NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	renderer, err := overlay.NewRenderer(overlay.Options{BrandTag: "RIALTOR", Locale: "es"})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	runner := pipeline.NewRunner(2, 8, logger)
	runner.Start(context.Background())
	t.Cleanup(runner.Stop)

	orchestrator, err := pipeline.NewOrchestrator(pipeline.Options{
		Jobs:             jobs,
		Blobs:            blobs,
		Analyzer:         stubAnalyzer{},
		Renderer:         renderer,
		Runner:           runner,
		Logger:           logger,
		ImageConcurrency: 2,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	app := handlers.NewApp(orchestrator, jobs, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		DefaultLocale:   "es",
		RateLimitPerMin: 1000,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, jobs: jobs}
}

func pngUpload(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 70, G: 90, B: 110, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode upload: %v", err)
	}
	return buf.Bytes()
}

func multipartSubmission(t *testing.T, fields map[string]string, images int) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for i := 0; i < images; i++ {
		part, err := writer.CreateFormFile("images", "photo.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(pngUpload(t)); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"title":   "Depto en venta",
		"price":   "250000",
		"address": "Main St 123",
		"contact": "+54 11 0000",
	}
}

func (e *testEnv) submit(t *testing.T, userID string, fields map[string]string, images int, headers map[string]string) *http.Response {
	t.Helper()
	body, contentType := multipartSubmission(t, fields, images)
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/v1/plaques", body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func (e *testEnv) getJob(t *testing.T, userID, jobID string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/v1/plaques/"+jobID, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, payload
}

func (e *testEnv) pollUntilTerminal(t *testing.T, userID, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, payload := e.getJob(t, userID, jobID)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get job status = %d: %v", resp.StatusCode, payload)
		}
		status, _ := payload["status"].(string)
		if domain.JobStatus(status).Terminal() {
			return payload
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return nil
}

func TestPlaqueSubmissionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.submit(t, "agent-1", validFields(), 2, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var created struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.JobID == "" {
		t.Fatalf("missing job_id")
	}
	if created.Status != string(domain.JobStatusProcessing) {
		t.Fatalf("created status = %q", created.Status)
	}

	final := env.pollUntilTerminal(t, "agent-1", created.JobID)
	if got := final["status"]; got != string(domain.JobStatusCompleted) {
		t.Fatalf("final status = %v, error_info = %v", got, final["error_info"])
	}
	originals, _ := final["original_images"].([]any)
	generated, _ := final["generated_images"].([]any)
	if len(originals) != 2 || len(generated) != 2 {
		t.Fatalf("originals = %d, generated = %d, want 2/2", len(originals), len(generated))
	}
}

func TestPlaqueSubmissionValidation(t *testing.T) {
	env := newTestEnv(t)

	fields := validFields()
	delete(fields, "price")
	resp := env.submit(t, "agent-1", fields, 1, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] != "validation_error" {
		t.Fatalf("error kind = %q", payload["error"])
	}
	if env.jobs.Len() != 0 {
		t.Fatalf("rejected submission created a job")
	}
}

func TestPlaqueSubmissionRequiresImages(t *testing.T) {
	env := newTestEnv(t)
	resp := env.submit(t, "agent-1", validFields(), 0, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.jobs.Len() != 0 {
		t.Fatalf("rejected submission created a job")
	}
}

func TestPlaqueSubmissionRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	resp := env.submit(t, "", validFields(), 1, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestPlaqueCurrencyDefaultsFromCountry(t *testing.T) {
	env := newTestEnv(t)

	resp := env.submit(t, "agent-1", validFields(), 1, map[string]string{"X-Country-Code": "AR"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	final := env.pollUntilTerminal(t, "agent-1", created.JobID)
	property, _ := final["property"].(map[string]any)
	if property["currency"] != "ARS" {
		t.Fatalf("currency = %v, want ARS", property["currency"])
	}
}

func TestPlaqueGetHidesOtherOwners(t *testing.T) {
	env := newTestEnv(t)

	resp := env.submit(t, "agent-1", validFields(), 1, nil)
	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	resp.Body.Close()

	got, _ := env.getJob(t, "someone-else", created.JobID)
	if got.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", got.StatusCode)
	}
}

func TestPlaqueGetUnknownJob(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.getJob(t, "agent-1", "no-such-job")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPlaquesListReturnsOwnJobs(t *testing.T) {
	env := newTestEnv(t)

	resp := env.submit(t, "agent-1", validFields(), 1, nil)
	var created struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	resp.Body.Close()
	env.pollUntilTerminal(t, "agent-1", created.JobID)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/v1/plaques", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-User-ID", "agent-1")
	listResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", listResp.StatusCode)
	}
	var payload struct {
		Jobs []map[string]any `json:"jobs"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(payload.Jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(payload.Jobs))
	}
	if payload.Jobs[0]["id"] != created.JobID {
		t.Fatalf("listed job id = %v", payload.Jobs[0]["id"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
