package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Tabix-Group/rialtor-plaques/internal/domain"
	"github.com/Tabix-Group/rialtor-plaques/internal/middleware"
	"github.com/Tabix-Group/rialtor-plaques/internal/pipeline"
)

const maxUploadBytes = 64 << 20

type plaqueCreatedResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type plaqueJobResponse struct {
	ID              string               `json:"id"`
	OwnerID         string               `json:"owner_id"`
	Title           string               `json:"title,omitempty"`
	Description     string               `json:"description,omitempty"`
	Property        domain.PropertyData  `json:"property"`
	OriginalImages  []string             `json:"original_images"`
	GeneratedImages []string             `json:"generated_images"`
	Status          domain.JobStatus     `json:"status"`
	ErrorInfo       *domain.ErrorInfo    `json:"error_info,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Currencies assumed for submissions that omit one, keyed by request country.
var countryCurrencies = map[string]string{
	"AR": "ARS", "UY": "UYU", "CL": "CLP", "PY": "PYG", "BO": "BOB",
	"PE": "PEN", "CO": "COP", "MX": "MXN", "BR": "BRL", "ES": "EUR",
	"PT": "EUR", "US": "USD",
}

// PlaquesCreate accepts a multipart submission with property fields and one
// or more image files, creates the job and returns before any image work
// starts.
func (a *App) PlaquesCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}

	property := domain.PropertyData{
		Price:        strings.TrimSpace(r.FormValue("price")),
		Address:      strings.TrimSpace(r.FormValue("address")),
		Contact:      strings.TrimSpace(r.FormValue("contact")),
		Currency:     strings.TrimSpace(r.FormValue("currency")),
		PropertyType: strings.TrimSpace(r.FormValue("property_type")),
		Rooms:        strings.TrimSpace(r.FormValue("rooms")),
		Area:         strings.TrimSpace(r.FormValue("area")),
		Email:        strings.TrimSpace(r.FormValue("email")),
	}
	if property.Currency == "" {
		if country := middleware.CountryFromContext(r.Context()); country != "" {
			property.Currency = countryCurrencies[country]
		}
	}

	images, err := readImages(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	job, err := a.Pipeline.Submit(r.Context(), pipeline.SubmitInput{
		OwnerID:     userID,
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Property:    property,
		Locale:      middleware.LocaleFromContext(r.Context()),
		Images:      images,
	})
	if err != nil {
		if domain.IsValidation(err) {
			a.error(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: plaque submission failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	a.json(w, http.StatusAccepted, plaqueCreatedResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
	})
}

// PlaqueGet returns the full job record, including error info when the job
// terminal-failed. Callers poll this endpoint to observe progress.
func (a *App) PlaqueGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	if job.OwnerID != userID {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

// PlaquesList returns the caller's jobs, newest first.
func (a *App) PlaquesList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobs, err := a.Jobs.ListByOwner(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: job listing failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	out := make([]plaqueJobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": out})
}

func readImages(r *http.Request) ([][]byte, error) {
	if r.MultipartForm == nil {
		return nil, errors.New("at least one image is required")
	}
	files := r.MultipartForm.File["images"]
	images := make([][]byte, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			return nil, errors.New("unreadable image upload")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.New("unreadable image upload")
		}
		images = append(images, data)
	}
	return images, nil
}

func toJobResponse(job *domain.PlaqueJob) plaqueJobResponse {
	originals := job.OriginalImages
	if originals == nil {
		originals = []string{}
	}
	generated := job.GeneratedImages
	if generated == nil {
		generated = []string{}
	}
	return plaqueJobResponse{
		ID:              job.ID,
		OwnerID:         job.OwnerID,
		Title:           job.Title,
		Description:     job.Description,
		Property:        job.Property,
		OriginalImages:  originals,
		GeneratedImages: generated,
		Status:          job.Status,
		ErrorInfo:       job.ErrorInfo,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}
