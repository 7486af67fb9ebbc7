package redcap

import (
	"context"
	"fmt"
	"strings"

	"github.com/clindata/redcap/invoke"
)

// SurveyOptions tunes survey endpoint calls.
type SurveyOptions struct {
	RetryPolicy *invoke.RetryPolicy
}

// ExportSurveyLink returns the survey URL for one instrument, event, and
// record. The server answers with a bare URL rather than JSON; any other
// body is a rejection.
func (c *Client) ExportSurveyLink(ctx context.Context, instrument, event, recordID string, opts *SurveyOptions) (string, error) {
	if instrument == "" || recordID == "" {
		return "", fmt.Errorf("redcap: instrument and record id required")
	}
	if opts == nil {
		opts = &SurveyOptions{}
	}

	spec := c.newSpec("surveyLink").
		Set("format", "json").
		Set("instrument", instrument).
		Set("event", event).
		Set("record", recordID).
		Set("returnFormat", "json")

	out, err := c.call(ctx, spec, opts.RetryPolicy, invoke.Text)
	if err != nil {
		return "", err
	}
	link := out.(string)
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return "", fmt.Errorf("redcap: survey link rejected: %s", link)
	}
	return link, nil
}

// ExportSurveyParticipants returns the participant list for one instrument
// and event.
func (c *Client) ExportSurveyParticipants(ctx context.Context, instrument, event string, opts *SurveyOptions) ([]map[string]interface{}, error) {
	if instrument == "" {
		return nil, fmt.Errorf("redcap: instrument required")
	}
	if opts == nil {
		opts = &SurveyOptions{}
	}

	spec := c.newSpec("participantList").
		Set("format", "json").
		Set("instrument", instrument).
		Set("event", event).
		Set("returnFormat", "json")

	out, err := c.call(ctx, spec, opts.RetryPolicy, invoke.JSONArray)
	if err != nil {
		return nil, err
	}
	return out.([]map[string]interface{}), nil
}
