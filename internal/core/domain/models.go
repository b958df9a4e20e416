package domain

import (
	"fmt"
	"os"
	"time"
)

// Job represents a single cavity detection request and, once the service
// reports completion, its result.
type Job struct {
	ID     string  `json:"id,omitempty"` // assigned by the service on submission
	Input  Input   `json:"input"`
	Output *Result `json:"output,omitempty"`
}

// Input is the request body sent to the service.
type Input struct {
	PDB       string   `json:"pdb"`
	PDBLigand *string  `json:"pdb_ligand,omitempty"`
	Settings  Settings `json:"settings"`
}

// JobOption customizes NewJob.
type JobOption func(*jobOptions)

type jobOptions struct {
	ligandPath string
	variant    Variant
}

// WithLigand adds a ligand structure file to the job input.
func WithLigand(path string) JobOption {
	return func(o *jobOptions) {
		o.ligandPath = path
	}
}

// WithVariant selects the default settings variant.
func WithVariant(v Variant) JobOption {
	return func(o *jobOptions) {
		o.variant = v
	}
}

// NewJob reads the protein structure file (and the optional ligand) and
// fills the settings with defaults.
func NewJob(proteinPath string, opts ...JobOption) (*Job, error) {
	o := jobOptions{variant: VariantTOML}
	for _, opt := range opts {
		opt(&o)
	}

	pdb, err := readStructure(proteinPath)
	if err != nil {
		return nil, err
	}

	job := &Job{
		Input: Input{
			PDB:      pdb,
			Settings: DefaultSettings(o.variant),
		},
	}

	if o.ligandPath != "" {
		ligand, err := readStructure(o.ligandPath)
		if err != nil {
			return nil, err
		}
		job.Input.PDBLigand = &ligand
	}

	return job, nil
}

func readStructure(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyStructure, path)
	}
	return string(data), nil
}

// HasLigand reports whether a ligand structure was supplied.
func (j *Job) HasLigand() bool {
	return j.Input.PDBLigand != nil
}

// EnableLigandMode turns on ligand restricted detection if a ligand is
// present. It reports whether the settings were changed.
func (j *Job) EnableLigandMode() bool {
	if !j.HasLigand() || j.Input.Settings.Modes.LigandMode {
		return false
	}
	j.Input.Settings.Modes.LigandMode = true
	return true
}

// Completed reports whether the job output is available.
func (j *Job) Completed() bool {
	return j.Output != nil
}

// Status returns the last known service status, or "" without output.
func (j *Job) Status() string {
	if j.Output == nil {
		return ""
	}
	return j.Output.Status
}

// Cavity returns the cavity structure (PDB text).
func (j *Job) Cavity() string {
	if j.Output == nil || j.Output.Output == nil {
		return ""
	}
	return j.Output.Output.PDBKV
}

// Report returns the cavity report. Data is only set when the client
// decoded the report as TOML.
func (j *Job) Report() Report {
	if j.Output == nil || j.Output.Output == nil {
		return Report{}
	}
	return j.Output.Output.Report
}

// Log returns the service log of the run.
func (j *Job) Log() string {
	if j.Output == nil || j.Output.Output == nil {
		return ""
	}
	return j.Output.Output.Log
}

// JobResult holds the outcome of one orchestrated run.
type JobResult struct {
	RunID        string
	Job          *Job
	InputPath    string
	ResponsePath string
	CavityPath   string
	ReportPath   string
	LogPath      string
	Success      bool
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  time.Time
}
