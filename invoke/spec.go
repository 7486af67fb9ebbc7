package invoke

// Field is one form-encoded key/value pair of an outbound request.
type Field struct {
	Key   string
	Value string
}

// RequestSpec is the ordered set of form fields for one API call. Order is
// preserved through encoding and fields are passed to the transport exactly as
// set; empty-string values are kept, never dropped.
//
// The bearer token must only ever appear under the "token" field. It travels
// in the request body, never in the URL.
type RequestSpec struct {
	fields []Field
}

// NewRequestSpec returns an empty spec.
func NewRequestSpec() *RequestSpec {
	return &RequestSpec{}
}

// Set appends the field, or replaces its value in place when the key is
// already present. It returns the spec for chaining.
func (s *RequestSpec) Set(key, value string) *RequestSpec {
	for i := range s.fields {
		if s.fields[i].Key == key {
			s.fields[i].Value = value
			return s
		}
	}
	s.fields = append(s.fields, Field{Key: key, Value: value})
	return s
}

// Get returns the value for key and whether it is present.
func (s *RequestSpec) Get(key string) (string, bool) {
	for _, f := range s.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Fields returns a copy of the fields in insertion order.
func (s *RequestSpec) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of fields.
func (s *RequestSpec) Len() int { return len(s.fields) }

// Clone returns an independent copy of the spec.
func (s *RequestSpec) Clone() *RequestSpec {
	return &RequestSpec{fields: s.Fields()}
}
