package cardfield

import (
	"errors"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"
)

var (
	ErrCardNumberLength = errors.New("Card number must be 13-19 digits")
	ErrCardNumberLuhn   = errors.New("Invalid card number")

	ErrExpirationRequired = errors.New("Expiration date is required")
	ErrExpirationFormat   = errors.New("Expiration date must be MM/YY format")
	ErrExpirationMonth    = errors.New("Invalid month")
	ErrCardExpired        = errors.New("Card has expired")

	ErrCVVRequired = errors.New("CVV is required")
	ErrCVVLength   = errors.New("CVV must be 3-4 digits")

	ErrPostalCodeRequired = errors.New("Postal code is required")
	ErrPostalCodeLength   = errors.New("Postal code must be 5 digits")
)

var (
	cardNumberPattern     = regexp.MustCompile(`^[0-9]{13,19}$`)
	expirationDatePattern = regexp.MustCompile(`^[0-9]{2}/[0-9]{2}$`)
)

type CardNumberResult struct {
	Valid   bool
	Message string
}

// ValidateCardNumber checks length and the Luhn checksum. Whitespace in
// input is ignored.
func ValidateCardNumber(input string) CardNumberResult {
	cleaned := stripSpace(input)
	if !cardNumberPattern.MatchString(cleaned) {
		return CardNumberResult{Message: ErrCardNumberLength.Error()}
	}
	if !luhn(cleaned) {
		return CardNumberResult{Message: ErrCardNumberLuhn.Error()}
	}
	return CardNumberResult{Valid: true}
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateExpirationDate accepts MM/YY. A card stays valid through the last
// instant of its expiry month, in the location of now.
func ValidateExpirationDate(input string, now time.Time) error {
	if input == "" {
		return ErrExpirationRequired
	}
	if !expirationDatePattern.MatchString(input) {
		return ErrExpirationFormat
	}
	month, _ := strconv.Atoi(input[:2])
	year, _ := strconv.Atoi(input[3:])
	if month < 1 || month > 12 {
		return ErrExpirationMonth
	}
	expiry := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, now.Location())
	if expiry.Before(now) {
		return ErrCardExpired
	}
	return nil
}

// ValidateCVV checks length only. Formatting strips non-digits before this
// runs in the form flow.
func ValidateCVV(input string) error {
	if input == "" {
		return ErrCVVRequired
	}
	if n := utf8.RuneCountInString(input); n < 3 || n > 4 {
		return ErrCVVLength
	}
	return nil
}

// ValidatePostalCode checks length only, like ValidateCVV.
func ValidatePostalCode(input string) error {
	if input == "" {
		return ErrPostalCodeRequired
	}
	if utf8.RuneCountInString(input) != 5 {
		return ErrPostalCodeLength
	}
	return nil
}
