package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a batch job.
type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// IsTerminal returns true if the status represents a final state.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobKind selects which pipeline processes a job.
type JobKind string

const (
	KindCertificates JobKind = "certificates"
	KindLabels       JobKind = "labels"
)

// IsValid checks if the kind is one of the supported pipelines.
func (k JobKind) IsValid() bool {
	return k == KindCertificates || k == KindLabels
}

// ParseJobKind converts a route segment or message field into a JobKind.
func ParseJobKind(s string) (JobKind, error) {
	k := JobKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
	return k, nil
}

// ItemOutcome is the per-item result recorded by checkpoints.
type ItemOutcome string

const (
	OutcomePending ItemOutcome = ""
	OutcomeSuccess ItemOutcome = "SUCCESS"
	OutcomeFailed  ItemOutcome = "FAILED"
)

// Item is one canonical record within a job's batch.
// Identifier is the certificate number or stock id; Fields carries the
// normalized columns (empty for certificate jobs).
type Item struct {
	Position   int               `json:"position"`
	Identifier string            `json:"identifier"`
	Fields     map[string]string `json:"fields,omitempty"`
	Outcome    ItemOutcome       `json:"outcome,omitempty"`
}

// Job is one batch submission and its processing lifecycle.
type Job struct {
	ID                    int64      `json:"id"`
	Kind                  JobKind    `json:"kind"`
	OwnerID               string     `json:"owner_id"`
	FileName              string     `json:"file_name"`
	Status                JobStatus  `json:"status"`
	Items                 []Item     `json:"items,omitempty"`
	TotalCount            int        `json:"total_count"`
	SuccessCount          int        `json:"success_count"`
	FailedCount           int        `json:"failed_count"`
	SourceFilePath        string     `json:"source_file_path"`
	GeneratedArtifactPath string     `json:"generated_artifact_path,omitempty"`
	FailedReason          string     `json:"failed_reason,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	FinishedAt            *time.Time `json:"finished_at,omitempty"`
}

// SuccessfulItems returns the items whose outcome is SUCCESS, in upload order.
func (j *Job) SuccessfulItems() []Item {
	out := make([]Item, 0, j.SuccessCount)
	for _, it := range j.Items {
		if it.Outcome == OutcomeSuccess {
			out = append(out, it)
		}
	}
	return out
}

// ArtifactFileName is the download name of the job's artifact.
func (j *Job) ArtifactFileName() string {
	if j.Kind == KindLabels {
		return fmt.Sprintf("job_%d_labels.pdf", j.ID)
	}
	return fmt.Sprintf("job_%d_results.xlsx", j.ID)
}

// Attempted returns how many items have a recorded outcome.
func (j *Job) Attempted() int {
	return j.SuccessCount + j.FailedCount
}

// Checkpoint is a durable progress write made after each processed item.
// Counters are absolute, so re-applying the same checkpoint is harmless.
type Checkpoint struct {
	SuccessCount int
	FailedCount  int
	Results      []ItemResult
}

// ItemResult records the outcome of the item at Position.
type ItemResult struct {
	Position int
	Outcome  ItemOutcome
}

// SubmitRequest carries an uploaded batch into the submit use case.
type SubmitRequest struct {
	Kind       JobKind
	OwnerID    string
	FileName   string
	SourcePath string
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	ID         int64     `json:"id"`
	Status     JobStatus `json:"status"`
	TotalCount int       `json:"totalCount"`
}

// JobSummary is one row of the job listing.
type JobSummary struct {
	ID                    int64     `json:"id"`
	FileName              string    `json:"fileName"`
	CreatedAt             time.Time `json:"createdAt"`
	TotalCount            int       `json:"totalCount"`
	SuccessCount          int       `json:"successCount"`
	FailedCount           int       `json:"failedCount"`
	Status                JobStatus `json:"status"`
	GeneratedArtifactPath string    `json:"generatedArtifactPath,omitempty"`
}

// Progress reports the counters of a job.
type Progress struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// ResultDescriptor points a client at the downloadable artifact.
type ResultDescriptor struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
}

// StatusView is the polling shape shared by both pipelines.
type StatusView struct {
	ID           int64             `json:"id"`
	State        JobStatus         `json:"state"`
	Progress     Progress          `json:"progress"`
	Result       *ResultDescriptor `json:"result,omitempty"`
	FailedReason string            `json:"failedReason,omitempty"`
}

// Artifact is a generated file ready to be streamed to a client.
type Artifact struct {
	JobID       int64
	Path        string
	FileName    string
	ContentType string
	Cached      bool
}
