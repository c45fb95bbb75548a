package service

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone converts an Indian mobile number to +91XXXXXXXXXX.  It
// accepts 12 digits starting with 91, or 10 digits starting with 6-9,
// with any punctuation in between.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return "+" + digits, nil
	case len(digits) == 10 && strings.ContainsRune("6789", rune(digits[0])):
		return "+91" + digits, nil
	}
	return "", validationError("invalid phone number format")
}

// MaskPhone hides all but the last four digits.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	keep := 4
	prefix := ""
	if strings.HasPrefix(phone, "+91") && len(phone) > 7 {
		prefix = "+91"
	}
	return prefix + strings.Repeat("*", len(phone)-len(prefix)-keep) + phone[len(phone)-keep:]
}
