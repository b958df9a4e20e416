package kvweb

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml"

	"kvclient/internal/core/domain"
)

// decodeResult checks the response against the expected job shape so that a
// malformed body fails here and not later in the accessors.
func (c *Client) decodeResult(body []byte) (*domain.Result, error) {
	var result domain.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding job: %w", ErrDecode, err)
	}
	if result.Status == "" {
		return nil, fmt.Errorf("%w: job without status", ErrDecode)
	}
	result.Raw = json.RawMessage(body)

	if result.Status != domain.StatusCompleted {
		return &result, nil
	}
	if result.Output == nil {
		return nil, fmt.Errorf("%w: completed job without output", ErrDecode)
	}
	if c.reportFormat == ReportTOML {
		data, err := decodeReport(result.Output.Report.Raw)
		if err != nil {
			return nil, err
		}
		result.Output.Report.Data = data
	}
	return &result, nil
}

func decodeReport(raw string) (map[string]any, error) {
	tree, err := toml.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding toml report: %w", ErrDecode, err)
	}
	return tree.ToMap(), nil
}
