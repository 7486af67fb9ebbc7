package redcap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clindata/redcap/invoke"
)

// ImportFileOptions tunes a file import.
type ImportFileOptions struct {
	// RepeatInstance targets an instance of a repeating instrument.
	// One-based, matching the server.
	RepeatInstance string
	// Data supplies the file content directly instead of reading path.
	Data []byte
	// ContentType overrides detection from the file content.
	ContentType string

	RetryPolicy *invoke.RetryPolicy
}

// ImportFile uploads a file into a record's file field. The server answers a
// successful import with an empty body; anything else is its JSON diagnostic,
// returned as an error.
func (c *Client) ImportFile(ctx context.Context, recordID, field, event, path string, opts *ImportFileOptions) error {
	if recordID == "" || field == "" {
		return fmt.Errorf("redcap: record id and field required")
	}
	if opts == nil {
		opts = &ImportFileOptions{}
	}

	data := opts.Data
	if data == nil {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("redcap: read upload file: %w", err)
		}
	}

	spec := c.newSpec("file").
		Set("format", "json").
		Set("action", "import").
		Set("record", recordID).
		Set("field", field).
		Set("event", event).
		Set("returnFormat", "json")
	if opts.RepeatInstance != "" {
		spec.Set("repeat_instance", opts.RepeatInstance)
	}

	file := invoke.File{
		Field:       "file",
		Name:        filepath.Base(path),
		ContentType: opts.ContentType,
		Data:        data,
	}

	out, err := c.callFile(ctx, spec, file, opts.RetryPolicy, invoke.Ack)
	if err != nil {
		return err
	}
	if out != true {
		return fmt.Errorf("redcap: file import rejected: %v", out)
	}
	return nil
}

// DeleteFileOptions tunes a file deletion.
type DeleteFileOptions struct {
	// RepeatInstance targets an instance of a repeating instrument.
	RepeatInstance string

	RetryPolicy *invoke.RetryPolicy
}

// DeleteFile removes the file stored in a record's file field.
func (c *Client) DeleteFile(ctx context.Context, recordID, field, event string, opts *DeleteFileOptions) error {
	if recordID == "" || field == "" {
		return fmt.Errorf("redcap: record id and field required")
	}
	if opts == nil {
		opts = &DeleteFileOptions{}
	}

	spec := c.newSpec("file").
		Set("action", "delete").
		Set("record", recordID).
		Set("field", field).
		Set("event", event)
	if opts.RepeatInstance != "" {
		spec.Set("repeat_instance", opts.RepeatInstance)
	}

	out, err := c.call(ctx, spec, opts.RetryPolicy, invoke.Ack)
	if err != nil {
		return err
	}
	if out != true {
		return fmt.Errorf("redcap: file delete rejected: %v", out)
	}
	return nil
}
