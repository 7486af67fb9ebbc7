package invoke

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsers(t *testing.T) {
	t.Run("JSONArray parses record exports", func(t *testing.T) {
		resp := &Response{Status: 200, Body: []byte(`[{"record_id":"1","consent_date":""},{"record_id":"2"}]`)}
		out, err := JSONArray(resp)
		require.NoError(t, err)
		records := out.([]map[string]interface{})
		require.Len(t, records, 2)
		assert.Equal(t, "", records[0]["consent_date"])
	})

	t.Run("JSONArray rejects non-array bodies", func(t *testing.T) {
		_, err := JSONArray(&Response{Status: 200, Body: []byte(`{"count":1}`)})
		assert.Error(t, err)
	})

	t.Run("JSONMap parses import acknowledgements", func(t *testing.T) {
		out, err := JSONMap(&Response{Status: 200, Body: []byte(`{"count": 2}`)})
		require.NoError(t, err)
		assert.Equal(t, float64(2), out.(map[string]interface{})["count"])
	})

	t.Run("JSONValue parses bare delete counts", func(t *testing.T) {
		out, err := JSONValue(&Response{Status: 200, Body: []byte(`1`)})
		require.NoError(t, err)
		assert.Equal(t, float64(1), out)
	})

	t.Run("Text returns survey links verbatim", func(t *testing.T) {
		out, err := Text(&Response{Status: 200, Body: []byte("https://redcap.test/surveys/?s=DEADBEEF\n")})
		require.NoError(t, err)
		assert.Equal(t, "https://redcap.test/surveys/?s=DEADBEEF", out)
	})

	t.Run("Ack treats empty body as success", func(t *testing.T) {
		out, err := Ack(&Response{Status: 200})
		require.NoError(t, err)
		assert.Equal(t, true, out)
	})

	t.Run("Ack parses non-empty diagnostics", func(t *testing.T) {
		out, err := Ack(&Response{Status: 400, Body: []byte(`{"error":"record not found"}`)})
		require.NoError(t, err)
		assert.Equal(t, "record not found", out.(map[string]interface{})["error"])
	})

	t.Run("malformed bodies fail parsing", func(t *testing.T) {
		for _, parse := range []Parser{JSONValue, JSONMap, JSONArray, Ack} {
			_, err := parse(&Response{Status: 200, Body: []byte(`<hash><error>x</error></hash>`)})
			assert.Error(t, err)
		}
	})

	t.Run("large bodies decode through the fast path", func(t *testing.T) {
		var b strings.Builder
		b.WriteByte('[')
		for i := 0; i < 2000; i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, `{"record_id":"%d","field_1":"value with some padding text"}`, i)
		}
		b.WriteByte(']')
		require.Greater(t, b.Len(), sonicThreshold)

		out, err := JSONArray(&Response{Status: 200, Body: []byte(b.String())})
		require.NoError(t, err)
		assert.Len(t, out.([]map[string]interface{}), 2000)
	})
}

func TestRequestSpec(t *testing.T) {
	t.Run("preserves insertion order", func(t *testing.T) {
		spec := NewRequestSpec().Set("token", "T").Set("content", "record").Set("format", "json")
		fields := spec.Fields()
		require.Len(t, fields, 3)
		assert.Equal(t, "token", fields[0].Key)
		assert.Equal(t, "content", fields[1].Key)
		assert.Equal(t, "format", fields[2].Key)
	})

	t.Run("set replaces in place", func(t *testing.T) {
		spec := NewRequestSpec().Set("token", "T").Set("format", "json").Set("format", "csv")
		assert.Equal(t, 2, spec.Len())
		v, ok := spec.Get("format")
		assert.True(t, ok)
		assert.Equal(t, "csv", v)
	})

	t.Run("clone is independent", func(t *testing.T) {
		spec := NewRequestSpec().Set("token", "T")
		clone := spec.Clone()
		clone.Set("token", "U")
		v, _ := spec.Get("token")
		assert.Equal(t, "T", v)
	})

	t.Run("fields returns a copy", func(t *testing.T) {
		spec := NewRequestSpec().Set("token", "T")
		fields := spec.Fields()
		fields[0].Value = "mutated"
		v, _ := spec.Get("token")
		assert.Equal(t, "T", v)
	})
}
