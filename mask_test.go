package redcap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"AB", "**"},
		{"ABCD", "****"},
		{"ABCDEF", "**CDEF"},
		{"9A81268476645C4E5F03428B8AC3AA7B", "****************************AA7B"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MaskToken(tc.in), tc.in)
	}
}
