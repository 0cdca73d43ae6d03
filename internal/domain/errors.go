package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found by ID (or is owned by someone else).
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotCompleted is returned when an artifact is requested before the job finished.
	ErrJobNotCompleted = errors.New("job has not completed yet")

	// ErrNoSuccesses is returned when an artifact is requested for a job without successful items.
	ErrNoSuccesses = errors.New("no successful records found to generate report")

	// ErrEmptyBatch is returned when an upload yields no items.
	ErrEmptyBatch = errors.New("no items found in uploaded file")

	// ErrEmptySheet is returned when the uploaded workbook has no usable sheet or header.
	ErrEmptySheet = errors.New("uploaded sheet is empty")

	// ErrUnreadableInput is returned when the upload cannot be parsed as a workbook.
	ErrUnreadableInput = errors.New("uploaded file is not a readable spreadsheet")

	// ErrUnsupportedKind is returned for an unknown pipeline kind.
	ErrUnsupportedKind = errors.New("unsupported job kind")

	// ErrPublishFailed is returned when the message broker publish fails.
	ErrPublishFailed = errors.New("failed to publish job to message queue")

	// ErrTemplateNotFound is returned when no label template exists on any candidate path.
	ErrTemplateNotFound = errors.New("label template not found")

	// ErrArtifactBusy is returned when another request is generating the same artifact.
	ErrArtifactBusy = errors.New("artifact is being generated, retry shortly")

	// ErrIncompleteProgress is returned when completing a job whose counters do not cover every item.
	ErrIncompleteProgress = errors.New("job progress does not cover all items")

	// ErrInvalidTransition is returned when a job's current status does not allow the requested change.
	ErrInvalidTransition = errors.New("job status does not allow this transition")

	// ErrReferenceNotFound is returned when no reference record matches a certificate number.
	ErrReferenceNotFound = errors.New("reference record not found")
)
