package kvweb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"kvclient/internal/core/domain"
)

const (
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxAttempts bounds a run to roughly 30 minutes of polling.
	DefaultMaxAttempts = 900

	createPath = "create"
)

var errPending = errors.New("job pending")

// ReportFormat selects how the report of a completed job is decoded.
type ReportFormat int

const (
	ReportTOML ReportFormat = iota
	ReportText
)

// ReportFormatFor returns the report format used by a settings variant.
func ReportFormatFor(v domain.Variant) ReportFormat {
	if v == domain.VariantText {
		return ReportText
	}
	return ReportTOML
}

// Client talks to the cavity detection web service. It holds no mutable
// state and can be shared between goroutines.
type Client struct {
	root         *url.URL
	client       *http.Client
	pollInterval time.Duration
	maxAttempts  int
	reportFormat ReportFormat
	logger       *slog.Logger
}

type Option func(*Client)

// WithPathSuffix appends a path to the service root, e.g. "/api".
func WithPathSuffix(path string) Option {
	return func(c *Client) {
		c.root.Path = strings.TrimRight(c.root.Path+"/"+strings.Trim(path, "/"), "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithMaxAttempts caps the number of polls of Run. Zero or less removes the
// cap, leaving the context as the only bound.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

func WithReportFormat(f ReportFormat) Option {
	return func(c *Client) {
		c.reportFormat = f
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client bound to the service at baseURL. No network
// activity happens here.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return nil, fmt.Errorf("please define the server url with a scheme, e.g. `http://localhost:8081`, got %q", baseURL)
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	parsedURL.RawQuery = ""
	parsedURL.Fragment = ""

	c := &Client{
		root:         parsedURL,
		client:       &http.Client{Timeout: time.Minute},
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		reportFormat: ReportTOML,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	return c, nil
}

// Root returns the fully qualified service root.
func (c *Client) Root() string {
	return c.root.String()
}

func (c *Client) createURL() string {
	return c.root.JoinPath(createPath).String()
}

// jobURL sets the unescaped id on Path; String escapes it once.
func (c *Client) jobURL(id string) string {
	u := *c.root
	u.Path = c.root.Path + "/" + id
	u.RawPath = ""
	return u.String()
}

// Submit sends the job input to the service and stores the assigned ID on
// the job. There is exactly one attempt.
func (c *Client) Submit(ctx context.Context, job *domain.Job) error {
	body, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("encoding job input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.createURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.WarnContext(ctx, "job submission rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)))
		return &SubmissionError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	// a job already queued with the same input is returned as a whole; it
	// carries the id as well
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("%w: decoding create response: %w", ErrDecode, err)
	}
	if created.ID == "" {
		return fmt.Errorf("%w: create response without id", ErrDecode)
	}

	job.ID = created.ID
	c.logger.DebugContext(ctx, "job submitted", slog.String("job_id", job.ID))
	return nil
}

// Status fetches the job resource with the given id. The status is decoded
// but not interpreted.
func (c *Client) Status(ctx context.Context, id string) (*domain.Result, error) {
	if id == "" {
		return nil, domain.ErrNotSubmitted
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transientError{err: fmt.Errorf("requesting job %s: %w", id, err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transientError{err: fmt.Errorf("reading job %s: %w", id, err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return c.decodeResult(body)
}

// Poll fetches the job once. It returns the result when the job completed,
// nil without error while the job is queued or running, and an error
// otherwise. IsTransient tells whether polling again may help.
func (c *Client) Poll(ctx context.Context, job *domain.Job) (*domain.Result, error) {
	result, err := c.Status(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case result.Status == domain.StatusCompleted:
		return result, nil
	case domain.IsPending(result.Status):
		c.logger.DebugContext(ctx, "job pending",
			slog.String("job_id", job.ID),
			slog.String("status", result.Status),
			slog.String("response", string(result.Raw)))
		return nil, nil
	case domain.IsFailed(result.Status):
		return nil, &JobFailedError{ID: job.ID, Status: result.Status}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, result.Status)
	}
}

// Run submits the job and polls it until it completes. Pending responses
// and transient failures are retried every poll interval, at most
// MaxAttempts times. On success job.Output is set.
func (c *Client) Run(ctx context.Context, job *domain.Job) error {
	if err := c.Submit(ctx, job); err != nil {
		return err
	}
	return c.Wait(ctx, job)
}

// Wait polls an already submitted job until it completes.
func (c *Client) Wait(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		return domain.ErrNotSubmitted
	}

	var (
		attempts int
		result   *domain.Result
	)
	operation := func() error {
		attempts++
		r, err := c.Poll(ctx, job)
		switch {
		case err != nil && IsTransient(err):
			return err
		case err != nil:
			return backoff.Permanent(err)
		case r == nil:
			return errPending
		}
		result = r
		return nil
	}
	notify := func(err error, next time.Duration) {
		if errors.Is(err, errPending) {
			return
		}
		c.logger.DebugContext(ctx, "poll failed, retrying",
			slog.String("job_id", job.ID),
			slog.Duration("next", next),
			slog.String("err", err.Error()))
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(c.pollInterval)
	if c.maxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.maxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	err := backoff.RetryNotify(operation, b, notify)
	switch {
	case err == nil:
	case errors.Is(err, errPending):
		return fmt.Errorf("%w: job %s still pending after %d attempts", ErrTimeout, job.ID, attempts)
	case IsTransient(err):
		return fmt.Errorf("%w: job %s after %d attempts: %w", ErrTimeout, job.ID, attempts, err)
	default:
		return err
	}

	job.Output = result
	c.logger.InfoContext(ctx, "job completed",
		slog.String("job_id", job.ID),
		slog.Int("attempts", attempts))
	return nil
}
