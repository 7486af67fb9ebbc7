package redcap

import (
	"context"

	"github.com/clindata/redcap/invoke"
)

// ExportMetadataOptions narrows a data dictionary export.
type ExportMetadataOptions struct {
	// Fields and Forms are comma-separated filter lists.
	Fields string
	Forms  string

	RetryPolicy *invoke.RetryPolicy
}

// ExportDataDictionary exports the project's field definitions.
func (c *Client) ExportDataDictionary(ctx context.Context, opts *ExportMetadataOptions) ([]map[string]interface{}, error) {
	if opts == nil {
		opts = &ExportMetadataOptions{}
	}

	spec := c.newSpec("metadata").
		Set("format", "json").
		Set("returnFormat", "json")
	if opts.Fields != "" {
		spec.Set("fields", opts.Fields)
	}
	if opts.Forms != "" {
		spec.Set("forms", opts.Forms)
	}

	out, err := c.call(ctx, spec, opts.RetryPolicy, invoke.JSONArray)
	if err != nil {
		return nil, err
	}
	return out.([]map[string]interface{}), nil
}

// ExportEventsOptions narrows an event export.
type ExportEventsOptions struct {
	// Arms is a comma-separated list of arm numbers; empty means all arms.
	Arms string

	RetryPolicy *invoke.RetryPolicy
}

// ExportEvents exports the events of a longitudinal project.
func (c *Client) ExportEvents(ctx context.Context, opts *ExportEventsOptions) ([]map[string]interface{}, error) {
	if opts == nil {
		opts = &ExportEventsOptions{}
	}

	spec := c.newSpec("event").
		Set("format", "json").
		Set("returnFormat", "json")
	if opts.Arms != "" {
		spec.Set("arms", opts.Arms)
	}

	out, err := c.call(ctx, spec, opts.RetryPolicy, invoke.JSONArray)
	if err != nil {
		return nil, err
	}
	return out.([]map[string]interface{}), nil
}
