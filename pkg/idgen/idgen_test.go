package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifierFormats(t *testing.T) {
	cases := []struct {
		name    string
		gen     func() string
		pattern string
	}{
		{"prescription", Prescription, `^RX-[0-9A-F]{8}$`},
		{"order", Order, `^ORD-[0-9A-F]{8}$`},
		{"transaction", Transaction, `^TXN-[0-9A-F]{10}$`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			re := regexp.MustCompile(tc.pattern)
			for i := 0; i < 100; i++ {
				assert.Regexp(t, re, tc.gen())
			}
		})
	}
}

func TestIdentifiersAreDistinct(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := Transaction()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate %s", id)
		seen[id] = struct{}{}
	}
}
