package invoke

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Record exports can run to megabytes; sonic pays off above this size while
// encoding/json stays cheaper for small acknowledgement bodies.
const sonicThreshold = 10 * 1024

func decodeJSON(body []byte, v interface{}) error {
	if len(body) > sonicThreshold {
		return sonic.Unmarshal(body, v)
	}
	return json.Unmarshal(body, v)
}

// JSONValue parses the body as any JSON value: object, array, or scalar.
// Delete acknowledgements, for instance, are a bare count.
func JSONValue(resp *Response) (interface{}, error) {
	var out interface{}
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return out, nil
}

// JSONMap parses the body as a JSON object, the shape of import
// acknowledgements and server error payloads.
func JSONMap(resp *Response) (interface{}, error) {
	var out map[string]interface{}
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return out, nil
}

// JSONArray parses the body as a JSON array of objects, the shape of record,
// metadata, event, and participant exports.
func JSONArray(resp *Response) (interface{}, error) {
	var out []map[string]interface{}
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}
	return out, nil
}

// Text returns the trimmed body as a string. Survey links arrive as a bare
// URL rather than JSON.
func Text(resp *Response) (interface{}, error) {
	return strings.TrimSpace(string(resp.Body)), nil
}

// Ack handles endpoints that answer an accepted request with an empty body
// (file import). An empty body parses to true; anything else must be the
// server's JSON diagnostic.
func Ack(resp *Response) (interface{}, error) {
	if len(resp.Body) == 0 {
		return true, nil
	}
	var out interface{}
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("expected empty or JSON body: %w", err)
	}
	return out, nil
}
