package domain

import "encoding/json"

// Job statuses reported by the service queue.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusTimedOut  = "timed_out"
)

// IsPending reports whether status means the job is not finished yet.
func IsPending(status string) bool {
	return status == StatusQueued || status == StatusRunning
}

// IsFailed reports whether status is a terminal failure.
func IsFailed(status string) bool {
	switch status {
	case StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

// Result is the decoded job resource returned by the service.
type Result struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Output       *Output `json:"output,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
	StartedAt    *string `json:"started_at,omitempty"`
	EndedAt      *string `json:"ended_at,omitempty"`
	ExpiresAfter string  `json:"expires_after,omitempty"`

	// Raw is the body as received.
	Raw json.RawMessage `json:"-"`
}

// Output holds the detection results of a completed job.
type Output struct {
	PDBKV  string `json:"pdb_kv"`
	Report Report `json:"report"`
	Log    string `json:"log"`
}

// Report is the cavity report. Raw is the text sent by the service; Data is
// the decoded TOML document when the report format is TOML, nil otherwise.
type Report struct {
	Raw  string         `json:"-"`
	Data map[string]any `json:"-"`
}

// MarshalJSON writes the report as the string the service sent.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Raw)
}

// UnmarshalJSON reads the report string; decoding of Data is left to the
// client, which knows the report format.
func (r *Report) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	r.Raw = s
	r.Data = nil
	return nil
}
