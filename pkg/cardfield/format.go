// Package cardfield formats and validates the card fields of a payment form:
// card number, expiration date, CVV and postal code.
package cardfield

import (
	"strings"
	"unicode"
)

const (
	maxFormattedCardNumber = 19
	maxCVV                 = 4
	maxPostalCode          = 5
)

func digitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripSpace(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// FormatCardNumber groups the digits of raw in blocks of four, keeping at
// most 16 digits.
func FormatCardNumber(raw string) string {
	digits := digitsOnly(raw)
	var b strings.Builder
	for i := 0; i < len(digits); i++ {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(digits[i])
	}
	return truncate(b.String(), maxFormattedCardNumber)
}

// FormatExpirationDate renders the digits of raw as MM/YY. Fewer than two
// digits are returned as they are.
func FormatExpirationDate(raw string) string {
	digits := digitsOnly(raw)
	if len(digits) < 2 {
		return digits
	}
	return digits[:2] + "/" + truncate(digits[2:], 2)
}

func FormatCVV(raw string) string {
	return truncate(digitsOnly(raw), maxCVV)
}

func FormatPostalCode(raw string) string {
	return truncate(digitsOnly(raw), maxPostalCode)
}
