package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
	"github.com/Tabix-Group/rialtor-plaques/internal/overlay"
	"github.com/Tabix-Group/rialtor-plaques/internal/storage"
	"github.com/Tabix-Group/rialtor-plaques/internal/vision"
)

// SubmitInput is a validated plaque creation request. Locale is the
// resolved request locale and drives price formatting on the rendered
// plaques; empty falls back to the renderer default.
type SubmitInput struct {
	OwnerID     string
	Title       string
	Description string
	Property    domain.PropertyData
	Locale      string
	Images      [][]byte
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Jobs             domain.PlaqueJobRepository
	Blobs            storage.BlobStore
	Analyzer         vision.Analyzer
	Renderer         *overlay.Renderer
	Runner           *Runner
	Logger           zerolog.Logger
	ImageConcurrency int
}

// Orchestrator drives a plaque job from submission to a terminal status.
// Submit is the only synchronous entry point; everything after job creation
// runs on the runner's workers.
type Orchestrator struct {
	jobs        domain.PlaqueJobRepository
	blobs       storage.BlobStore
	analyzer    vision.Analyzer
	renderer    *overlay.Renderer
	runner      *Runner
	logger      zerolog.Logger
	concurrency int
	validate    *validator.Validate
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Jobs == nil || opts.Blobs == nil || opts.Analyzer == nil || opts.Renderer == nil || opts.Runner == nil {
		return nil, errors.New("pipeline: all collaborators are required")
	}
	concurrency := opts.ImageConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		jobs:        opts.Jobs,
		blobs:       opts.Blobs,
		analyzer:    opts.Analyzer,
		renderer:    opts.Renderer,
		runner:      opts.Runner,
		logger:      opts.Logger,
		concurrency: concurrency,
		validate:    validator.New(),
	}, nil
}

// Submit validates the request, persists the initial job record and
// enqueues the asynchronous pipeline. The returned job reflects the state
// visible to the caller: PROCESSING, empty image lists.
func (o *Orchestrator) Submit(ctx context.Context, in SubmitInput) (*domain.PlaqueJob, error) {
	if err := o.validateInput(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &domain.PlaqueJob{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		Title:       in.Title,
		Description: in.Description,
		Property:    in.Property,
		Status:      domain.JobStatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("pipeline: create job: %w", err)
	}

	// Detach the buffers from the request before handing them to a worker.
	images := make([][]byte, len(in.Images))
	for i, img := range in.Images {
		images[i] = append([]byte(nil), img...)
	}
	property := in.Property
	locale := in.Locale

	scheduled := o.runner.Enqueue(func(taskCtx context.Context) {
		o.run(taskCtx, job.ID, property, locale, images)
	})
	if !scheduled {
		err := errors.New("pipeline: runner is stopped")
		logger := o.logger.With().Str("job_id", job.ID).Logger()
		o.fail(ctx, job.ID, domain.StageUploadOriginals, err, logger)
		return nil, fmt.Errorf("pipeline: schedule job: %w", err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", job.OwnerID).
		Int("images", len(images)).
		Msg("pipeline: job submitted")
	return job, nil
}

func (o *Orchestrator) validateInput(in SubmitInput) error {
	if strings.TrimSpace(in.OwnerID) == "" {
		return domain.NewValidationError("owner_id", "is required")
	}
	if len(in.Images) == 0 {
		return domain.NewValidationError("images", "at least one image is required")
	}
	for i, img := range in.Images {
		if len(img) == 0 {
			return domain.NewValidationError("images", fmt.Sprintf("image %d is empty", i+1))
		}
	}
	for field, value := range map[string]string{
		"price":   in.Property.Price,
		"address": in.Property.Address,
		"contact": in.Property.Contact,
	} {
		if strings.TrimSpace(value) == "" {
			return domain.NewValidationError(field, "is required")
		}
	}
	if err := o.validate.Struct(in.Property); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return domain.NewValidationError(strings.ToLower(fieldErrs[0].Field()), "is invalid")
		}
		return domain.NewValidationError("property", "is invalid")
	}
	return nil
}

// run executes the four pipeline stages. The job record is written exactly
// three times: originals persisted, generation start, finalize.
func (o *Orchestrator) run(ctx context.Context, jobID string, property domain.PropertyData, locale string, images [][]byte) {
	logger := o.logger.With().Str("job_id", jobID).Logger()
	logger.Info().Int("images", len(images)).Msg("pipeline: started")

	originals, err := o.uploadOriginals(ctx, jobID, images)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: original upload failed")
		o.fail(ctx, jobID, domain.StageUploadOriginals, err, logger)
		return
	}

	if err := o.jobs.SetGenerating(ctx, jobID, originals); err != nil {
		logger.Error().Err(err).Msg("pipeline: mark generating failed")
		o.fail(ctx, jobID, domain.StageUploadOriginals, err, logger)
		return
	}

	generated := o.generateAll(ctx, jobID, property, locale, originals, logger)

	if len(generated) == 0 {
		info := &domain.ErrorInfo{
			Stage:   domain.StageAllImagesFailed,
			Message: fmt.Sprintf("all %d images failed to generate", len(originals)),
		}
		if err := o.jobs.Finalize(ctx, jobID, nil, domain.JobStatusError, info); err != nil {
			logger.Error().Err(err).Msg("pipeline: finalize failed")
		}
		logger.Error().Int("originals", len(originals)).Msg("pipeline: job failed, no image generated")
		return
	}

	if err := o.jobs.Finalize(ctx, jobID, generated, domain.JobStatusCompleted, nil); err != nil {
		logger.Error().Err(err).Msg("pipeline: finalize failed")
		return
	}
	logger.Info().
		Int("originals", len(originals)).
		Int("generated", len(generated)).
		Msg("pipeline: job completed")
}

// uploadOriginals persists every raw input under a per-job path. The stage
// is all-or-nothing: without original URLs no per-image work can proceed.
func (o *Orchestrator) uploadOriginals(ctx context.Context, jobID string, images [][]byte) ([]string, error) {
	urls := make([]string, 0, len(images))
	for i, data := range images {
		contentType := http.DetectContentType(data)
		key := fmt.Sprintf("plaques/%s/originals/%02d%s", jobID, i+1, extensionFor(contentType))
		url, err := o.blobs.Upload(ctx, key, data, contentType)
		if err != nil {
			return nil, fmt.Errorf("upload original %d: %w", i+1, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// generateAll fans out per-image work with bounded concurrency. Every
// image's outcome is independent; the accumulator keeps source indices so
// successes come back in input order. The WaitGroup is the finalize
// barrier: no job finishes before every outcome is known.
func (o *Orchestrator) generateAll(ctx context.Context, jobID string, property domain.PropertyData, locale string, originals []string, logger zerolog.Logger) []string {
	type generated struct {
		index int
		url   string
	}

	var (
		mu      sync.Mutex
		results []generated
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, o.concurrency)

	for i, srcURL := range originals {
		wg.Add(1)
		go func(index int, srcURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			url, err := o.generateOne(ctx, jobID, srcURL, property, locale)
			if err != nil {
				logger.Error().Err(err).
					Int("image_index", index).
					Str("source_url", srcURL).
					Msg("pipeline: image generation failed")
				return
			}
			mu.Lock()
			results = append(results, generated{index: index, url: url})
			mu.Unlock()
		}(i, srcURL)
	}
	wg.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	urls := make([]string, 0, len(results))
	for _, res := range results {
		urls = append(urls, res.url)
	}
	return urls
}

// generateOne turns one source image URL into one overlaid image URL. An
// analyzer failure is absorbed with the default analysis; any later failure
// is returned and isolated to this image by the caller.
func (o *Orchestrator) generateOne(ctx context.Context, jobID, srcURL string, property domain.PropertyData, locale string) (string, error) {
	analysis, err := o.analyzer.Analyze(ctx, srcURL)
	if err != nil {
		o.logger.Warn().Err(err).
			Str("job_id", jobID).
			Str("source_url", srcURL).
			Msg("pipeline: analysis failed, using default")
		analysis = vision.DefaultResult()
	}
	if analysis.Source == vision.SourceDefault {
		o.logger.Debug().Str("job_id", jobID).Msg("pipeline: rendering with default analysis")
	}

	src, err := o.blobs.Download(ctx, srcURL)
	if err != nil {
		return "", fmt.Errorf("%s: fetch source: %w", domain.StageRender, err)
	}

	rendered, err := o.renderer.Render(src, property, analysis.Analysis, locale)
	if err != nil {
		return "", fmt.Errorf("%s: %w", domain.StageRender, err)
	}

	key := fmt.Sprintf("plaques/%s/generated/%s.png", jobID, uuid.NewString())
	url, err := o.blobs.Upload(ctx, key, rendered, "image/png")
	if err != nil {
		return "", fmt.Errorf("%s: %w", domain.StageUploadGenerated, err)
	}
	return url, nil
}

func (o *Orchestrator) fail(ctx context.Context, jobID, stage string, cause error, logger zerolog.Logger) {
	info := &domain.ErrorInfo{Stage: stage, Message: cause.Error()}
	if err := o.jobs.Finalize(ctx, jobID, nil, domain.JobStatusError, info); err != nil {
		logger.Error().Err(err).Str("stage", stage).Msg("pipeline: record failure failed")
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
