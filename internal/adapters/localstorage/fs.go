package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"kvclient/internal/core/domain"
)

const (
	inputFile    = "input.json"
	responseFile = "response.json"
)

// Paths are the destinations of the three job outputs.
type Paths struct {
	Cavity string
	Report string
	Log    string
}

// DefaultPaths returns cavity.pdb, report.toml and job.log under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Cavity: filepath.Join(dir, "cavity.pdb"),
		Report: filepath.Join(dir, "report.toml"),
		Log:    filepath.Join(dir, "job.log"),
	}
}

// WriteResults writes the cavity, report and log of a completed job to the
// given paths. A job without output is an error.
func WriteResults(job *domain.Job, paths Paths) error {
	if job == nil || !job.Completed() {
		return domain.ErrNoOutput
	}

	files := []struct {
		path    string
		content string
	}{
		{paths.Cavity, job.Cavity()},
		{paths.Report, job.Report().Raw},
		{paths.Log, job.Log()},
	}
	for _, f := range files {
		if err := writeFile(f.path, strings.NewReader(f.content)); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return file.Close()
}

// LocalStorage implements ports.Storage for the local filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// InitJob creates the run directory.
func (s *LocalStorage) InitJob(ctx context.Context, runID string) error {
	path := s.GetJobPath(runID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create job directory %s: %w", path, err)
	}
	return nil
}

// SaveStructure saves a downloaded structure file.
func (s *LocalStorage) SaveStructure(ctx context.Context, runID string, reader io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "protein.pdb"
	}
	path := filepath.Join(s.GetJobPath(runID), filepath.Base(filename))
	if err := writeFile(path, reader); err != nil {
		return "", err
	}
	return path, nil
}

// SaveInput saves the job input.
func (s *LocalStorage) SaveInput(ctx context.Context, runID string, data []byte) error {
	path := filepath.Join(s.GetJobPath(runID), inputFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", inputFile, err)
	}
	return nil
}

// SaveResponse saves the raw service response.
func (s *LocalStorage) SaveResponse(ctx context.Context, runID string, data []byte) error {
	path := filepath.Join(s.GetJobPath(runID), responseFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", responseFile, err)
	}
	return nil
}

// SaveResults writes the job outputs to the default paths of the run.
func (s *LocalStorage) SaveResults(ctx context.Context, runID string, job *domain.Job) error {
	return WriteResults(job, DefaultPaths(s.GetJobPath(runID)))
}

// GetJobPath returns the path for a run directory.
func (s *LocalStorage) GetJobPath(runID string) string {
	return filepath.Join(s.BaseDir, "jobs", runID)
}

// InputPath returns the path of the saved input of a run.
func (s *LocalStorage) InputPath(runID string) string {
	return filepath.Join(s.GetJobPath(runID), inputFile)
}

// ResponsePath returns the path of the saved response of a run.
func (s *LocalStorage) ResponsePath(runID string) string {
	return filepath.Join(s.GetJobPath(runID), responseFile)
}
