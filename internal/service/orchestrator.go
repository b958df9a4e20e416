package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kvclient/internal/adapters/downloader"
	"kvclient/internal/adapters/localstorage"
	"kvclient/internal/core/domain"
	"kvclient/internal/core/ports"
	"kvclient/internal/log"
)

// JobRequest describes one detection run. Protein and Ligand are local
// paths or http(s) URLs.
type JobRequest struct {
	Protein string
	Ligand  string
	Variant domain.Variant
}

// Orchestrator coordinates a detection run: fetch inputs, build the job,
// run it on the service and persist the artifacts.
type Orchestrator struct {
	runner     ports.JobRunner
	downloader ports.Downloader
	storage    ports.Storage
	logger     *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. A nil logger means
// slog.Default().
func NewOrchestrator(
	runner ports.JobRunner,
	downloader ports.Downloader,
	storage ports.Storage,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		runner:     runner,
		downloader: downloader,
		storage:    storage,
		logger:     logger,
	}
}

// RunJob executes a complete detection run. The returned result is never
// nil; on failure it carries the error message as well.
func (o *Orchestrator) RunJob(ctx context.Context, req JobRequest) (*domain.JobResult, error) {
	runID := uuid.New().String()
	ctx = log.ContextAttrs(ctx, slog.String("run_id", runID))
	result := &domain.JobResult{RunID: runID, StartedAt: time.Now().UTC()}

	fail := func(step string, err error) (*domain.JobResult, error) {
		err = fmt.Errorf("%s: %w", step, err)
		result.ErrorMessage = err.Error()
		o.logger.ErrorContext(ctx, "run failed", slog.String("err", result.ErrorMessage))
		return result, err
	}

	o.logger.InfoContext(ctx, "starting run", slog.String("protein", req.Protein))
	if err := o.storage.InitJob(ctx, runID); err != nil {
		return fail("failed to init run", err)
	}

	proteinPath, err := o.resolve(ctx, runID, req.Protein, "protein")
	if err != nil {
		return fail("failed to fetch protein", err)
	}
	opts := []domain.JobOption{domain.WithVariant(req.Variant)}
	if req.Ligand != "" {
		ligandPath, err := o.resolve(ctx, runID, req.Ligand, "ligand")
		if err != nil {
			return fail("failed to fetch ligand", err)
		}
		opts = append(opts, domain.WithLigand(ligandPath))
	}

	job, err := domain.NewJob(proteinPath, opts...)
	if err != nil {
		return fail("failed to create job", err)
	}
	result.Job = job
	job.EnableLigandMode()
	if err := job.Input.Validate(); err != nil {
		return fail("failed to validate job", err)
	}

	inputData, err := json.MarshalIndent(job.Input, "", "  ")
	if err != nil {
		return fail("failed to encode input", err)
	}
	if err := o.storage.SaveInput(ctx, runID, inputData); err != nil {
		return fail("failed to save input", err)
	}
	result.InputPath = filepath.Join(o.storage.GetJobPath(runID), "input.json")

	o.logger.InfoContext(ctx, "submitting job")
	if err := o.runner.Run(ctx, job); err != nil {
		return fail("failed to run job", err)
	}
	ctx = log.ContextAttrs(ctx, slog.String("job_id", job.ID))

	if err := o.storage.SaveResponse(ctx, runID, job.Output.Raw); err != nil {
		return fail("failed to save response", err)
	}
	result.ResponsePath = filepath.Join(o.storage.GetJobPath(runID), "response.json")

	if err := o.storage.SaveResults(ctx, runID, job); err != nil {
		return fail("failed to save results", err)
	}
	paths := localstorage.DefaultPaths(o.storage.GetJobPath(runID))
	result.CavityPath = paths.Cavity
	result.ReportPath = paths.Report
	result.LogPath = paths.Log

	result.Success = true
	result.CompletedAt = time.Now().UTC()
	o.logger.InfoContext(ctx, "run completed", slog.String("dir", o.storage.GetJobPath(runID)))
	return result, nil
}

// RunJobs runs the requests with at most limit of them in flight. Results
// are in request order; a failing run does not stop the others. The
// returned error is the first failure, if any.
func (o *Orchestrator) RunJobs(ctx context.Context, reqs []JobRequest, limit int) ([]*domain.JobResult, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]*domain.JobResult, len(reqs))
	errs := make([]error, len(reqs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			results[i], errs[i] = o.RunJob(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// resolve returns a local path for location, downloading remote files into
// the run directory. Downloaded names are prefixed with role so a protein
// and a ligand sharing a basename do not overwrite each other.
func (o *Orchestrator) resolve(ctx context.Context, runID, location, role string) (string, error) {
	if !downloader.IsRemote(location) {
		return location, nil
	}
	o.logger.DebugContext(ctx, "downloading structure", slog.String("url", location))
	body, err := o.downloader.Download(ctx, location)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return o.storage.SaveStructure(ctx, runID, body, role+"_"+downloader.FileName(location, "structure.pdb"))
}
