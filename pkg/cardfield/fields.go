package cardfield

import (
	"sort"
	"strings"
	"time"
)

const (
	FieldCardNumber     = "cardNumber"
	FieldExpirationDate = "expirationDate"
	FieldCVV            = "cvv"
	FieldPostalCode     = "postalCode"
)

type Fields struct {
	CardNumber     string
	ExpirationDate string
	CVV            string
	PostalCode     string
}

// Format applies the per-field formatters, as the payment form does on
// every keystroke.
func Format(raw Fields) Fields {
	return Fields{
		CardNumber:     FormatCardNumber(raw.CardNumber),
		ExpirationDate: FormatExpirationDate(raw.ExpirationDate),
		CVV:            FormatCVV(raw.CVV),
		PostalCode:     FormatPostalCode(raw.PostalCode),
	}
}

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e[name])
	}
	return strings.Join(parts, "; ")
}

// Validate runs every field validator and returns nil when all pass.
func Validate(fields Fields, now time.Time) FieldErrors {
	errs := FieldErrors{}
	if res := ValidateCardNumber(fields.CardNumber); !res.Valid {
		errs[FieldCardNumber] = res.Message
	}
	if err := ValidateExpirationDate(fields.ExpirationDate, now); err != nil {
		errs[FieldExpirationDate] = err.Error()
	}
	if err := ValidateCVV(fields.CVV); err != nil {
		errs[FieldCVV] = err.Error()
	}
	if err := ValidatePostalCode(fields.PostalCode); err != nil {
		errs[FieldPostalCode] = err.Error()
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
