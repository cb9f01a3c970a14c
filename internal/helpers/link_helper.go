package helpers

import "strings"

// WhatsAppLink builds a wa.me deep link from a phone number in any
// common notation ("+94 71 234 5678", "071-2345678", ...). Returns ""
// when the number has no digits.
func WhatsAppLink(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return "https://wa.me/" + digits.String()
}
