package domain

import "time"

// JobStatus enumerates the plaque job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusGenerating JobStatus = "GENERATING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusError      JobStatus = "ERROR"
)

// Terminal reports whether no further transition can leave the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Pipeline stage names recorded in ErrorInfo and used in log events.
const (
	StageUploadOriginals = "upload-originals"
	StageAnalyze         = "analyze"
	StageRender          = "render"
	StageUploadGenerated = "upload-generated"
	StageAllImagesFailed = "all-images-failed"
)

// PropertyData carries the listing details rendered onto the plaque.
// Price, Address and Contact must be present before a job may start.
type PropertyData struct {
	Price        string `json:"price" validate:"required"`
	Address      string `json:"address" validate:"required"`
	Contact      string `json:"contact" validate:"required"`
	Currency     string `json:"currency,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
	Rooms        string `json:"rooms,omitempty"`
	Area         string `json:"area,omitempty"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
}

// ErrorInfo is the structured diagnostic stored when a job terminates in ERROR.
type ErrorInfo struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// PlaqueJob is the single source of truth for pipeline progress. It is
// created by the orchestrator and mutated only as the pipeline advances.
type PlaqueJob struct {
	ID              string
	OwnerID         string
	Title           string
	Description     string
	Property        PropertyData
	OriginalImages  []string
	GeneratedImages []string
	Status          JobStatus
	ErrorInfo       *ErrorInfo
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
