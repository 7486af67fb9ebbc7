package redcap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clindata/redcap/invoke"
)

// ExportRecordsOptions narrows a record export. Zero values keep the server
// defaults used by the original API client: flat JSON, raw values.
type ExportRecordsOptions struct {
	// Fields, Forms, and Events are comma-separated filter lists.
	Fields string
	Forms  string
	Events string

	// Type selects "flat" (default) or "eav".
	Type string
	// RawOrLabel selects "raw" (default) or "label" values.
	RawOrLabel string
	// RawOrLabelHeaders selects header style for labelled exports.
	RawOrLabelHeaders string

	ExportCheckboxLabel    bool
	ExportSurveyFields     bool
	ExportDataAccessGroups bool

	// RetryPolicy overrides the client default for this call.
	RetryPolicy *invoke.RetryPolicy
}

// ExportRecords exports study records as parsed JSON objects.
func (c *Client) ExportRecords(ctx context.Context, opts *ExportRecordsOptions) ([]map[string]interface{}, error) {
	if opts == nil {
		opts = &ExportRecordsOptions{}
	}

	spec := c.newSpec("record").
		Set("format", "json").
		Set("type", orDefault(opts.Type, "flat")).
		Set("rawOrLabel", orDefault(opts.RawOrLabel, "raw")).
		Set("rawOrLabelHeaders", orDefault(opts.RawOrLabelHeaders, "raw")).
		Set("exportCheckboxLabel", boolField(opts.ExportCheckboxLabel)).
		Set("exportSurveyFields", boolField(opts.ExportSurveyFields)).
		Set("exportDataAccessGroups", boolField(opts.ExportDataAccessGroups)).
		Set("returnFormat", "json")

	if opts.Fields != "" {
		spec.Set("fields", opts.Fields)
	}
	if opts.Forms != "" {
		spec.Set("forms", opts.Forms)
	}
	if opts.Events != "" {
		spec.Set("events", opts.Events)
	}

	out, err := c.call(ctx, spec, opts.RetryPolicy, invoke.JSONArray)
	if err != nil {
		return nil, err
	}
	return out.([]map[string]interface{}), nil
}

// ImportRecordsOptions tunes a record import.
type ImportRecordsOptions struct {
	// Overwrite makes empty incoming values overwrite stored non-null data.
	Overwrite bool
	// Type selects "flat" (default) or "eav".
	Type string
	// DateFormat is "YMD" (default), "MDY", or "DMY".
	DateFormat string
	// ReturnContent is "count" (default), "ids", or "nothing".
	ReturnContent string

	RetryPolicy *invoke.RetryPolicy
}

// ImportRecords uploads records and returns the server acknowledgement,
// normally {"count": n}. A payload with an "error" key is an application
// rejection the caller must inspect; it is never retried.
//
// data may be a JSON string or any value that marshals to JSON. A single
// object is wrapped into a one-element array, which is the shape the server
// expects.
func (c *Client) ImportRecords(ctx context.Context, data interface{}, opts *ImportRecordsOptions) (map[string]interface{}, error) {
	if opts == nil {
		opts = &ImportRecordsOptions{}
	}

	payload, err := encodeRecords(data)
	if err != nil {
		return nil, err
	}

	overwrite := "normal"
	if opts.Overwrite {
		overwrite = "overwrite"
	}

	spec := c.newSpec("record").
		Set("format", "json").
		Set("type", orDefault(opts.Type, "flat")).
		Set("overwriteBehavior", overwrite).
		Set("data", payload).
		Set("dateFormat", orDefault(opts.DateFormat, "YMD")).
		Set("returnContent", orDefault(opts.ReturnContent, "count")).
		Set("returnFormat", "json")

	out, err := c.call(ctx, spec, opts.RetryPolicy, invoke.JSONMap)
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}

// DeleteRecordOptions tunes a record deletion.
type DeleteRecordOptions struct {
	// Arm restricts the delete to a single arm of a longitudinal study.
	Arm string

	RetryPolicy *invoke.RetryPolicy
}

// DeleteRecord deletes one record and returns the number of records deleted.
func (c *Client) DeleteRecord(ctx context.Context, recordID string, opts *DeleteRecordOptions) (int, error) {
	if recordID == "" {
		return 0, fmt.Errorf("redcap: record id required")
	}
	if opts == nil {
		opts = &DeleteRecordOptions{}
	}

	spec := c.newSpec("record").
		Set("action", "delete").
		Set("records[0]", recordID)
	if opts.Arm != "" {
		spec.Set("arm", opts.Arm)
	}

	out, err := c.call(ctx, spec, opts.RetryPolicy, invoke.JSONValue)
	if err != nil {
		return 0, err
	}
	count, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("redcap: delete rejected: %v", out)
	}
	return int(count), nil
}

// encodeRecords normalizes the import payload to a JSON array string.
func encodeRecords(data interface{}) (string, error) {
	switch v := data.(type) {
	case nil:
		return "", fmt.Errorf("redcap: import data required")
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", fmt.Errorf("redcap: import data required")
		}
		if strings.HasPrefix(trimmed, "[") {
			return trimmed, nil
		}
		var single interface{}
		if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
			return "", fmt.Errorf("redcap: import data is not valid JSON: %w", err)
		}
		wrapped, err := json.Marshal([]interface{}{single})
		if err != nil {
			return "", err
		}
		return string(wrapped), nil
	case []byte:
		return encodeRecords(string(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("redcap: import data is not marshalable: %w", err)
		}
		if strings.HasPrefix(string(raw), "[") {
			return string(raw), nil
		}
		wrapped, err := json.Marshal([]interface{}{v})
		if err != nil {
			return "", err
		}
		return string(wrapped), nil
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func boolField(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
