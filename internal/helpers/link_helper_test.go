package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhatsAppLink(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{name: "international with spaces", phone: "+94 71 234 5678", want: "https://wa.me/94712345678"},
		{name: "dashes", phone: "071-234-5678", want: "https://wa.me/0712345678"},
		{name: "already digits", phone: "94712345678", want: "https://wa.me/94712345678"},
		{name: "no digits", phone: "n/a", want: ""},
		{name: "empty", phone: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, WhatsAppLink(tt.phone))
		})
	}
}
