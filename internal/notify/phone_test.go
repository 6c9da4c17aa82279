package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumber(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		prefix string
		want   string
	}{
		{"bare mobile gets prefix", "11987654321", "55", "5511987654321"},
		{"bare landline gets prefix", "1133334444", "55", "551133334444"},
		{"already prefixed", "5511987654321", "55", "5511987654321"},
		{"formatted input", "(11) 98765-4321", "55", "5511987654321"},
		{"gateway jid", "5511987654321@s.whatsapp.net", "55", "5511987654321"},
		{"short number untouched", "4321", "55", "4321"},
		{"no prefix configured", "11987654321", "", "11987654321"},
		{"empty", "", "55", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeNumber(tc.raw, tc.prefix))
		})
	}
}
