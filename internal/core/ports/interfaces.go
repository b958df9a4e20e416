package ports

import (
	"context"
	"io"

	"kvclient/internal/core/domain"
)

// JobRunner defines the contract for running a job on the detection service.
type JobRunner interface {
	// Run submits the job and blocks until its output is available or a
	// terminal error occurs. On success job.Output is set.
	Run(ctx context.Context, job *domain.Job) error
}

// Downloader defines the contract for fetching remote structure files.
type Downloader interface {
	// Download fetches the file at the given URL.
	// Returns a ReadCloser that the caller must close.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Storage defines the contract for persisting job artifacts.
type Storage interface {
	// InitJob creates the run directory structure.
	InitJob(ctx context.Context, runID string) error

	// SaveStructure stores a downloaded structure file and returns its path.
	SaveStructure(ctx context.Context, runID string, reader io.Reader, filename string) (string, error)

	// SaveInput saves the request body sent to the service.
	SaveInput(ctx context.Context, runID string, data []byte) error

	// SaveResponse saves the service response without modification.
	SaveResponse(ctx context.Context, runID string, data []byte) error

	// SaveResults writes the cavity, report and log of a completed job.
	SaveResults(ctx context.Context, runID string, job *domain.Job) error

	// GetJobPath returns the filesystem path for a given run ID.
	GetJobPath(runID string) string
}
