package phone

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"

	"github.com/LeventeLantos/modem-sms/internal/model"
)

// Normalize reduces a phone number to the digit string used for equality.
// Domestic 8XXXXXXXXXX and international +7XXXXXXXXXX forms compare equal.
// Inputs that are not phone numbers (short codes, labels) come back
// trimmed and lower-cased instead.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range raw {
		if r == '+' || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	n := b.String()

	if len([]rune(n)) == 11 && strings.HasPrefix(n, "8") {
		n = "7" + n[1:]
	}
	n = strings.TrimPrefix(n, "+")

	if !allDigits(n) {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return n
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// FindContactID returns the contact of the first message carrying a number
// equal to target after normalization. Order of msgs decides ties.
// Messages without a contact id are skipped since nothing can be scoped to
// them. A blank target never matches.
func FindContactID(target string, msgs []model.Message) (model.ID, bool) {
	want := Normalize(target)
	if want == "" {
		return model.ID{}, false
	}
	for _, m := range msgs {
		if m.ContactID.IsZero() {
			continue
		}
		for _, n := range m.PhoneNumbers {
			if Normalize(n) == want {
				return m.ContactID, true
			}
		}
	}
	return model.ID{}, false
}

// ValidateDestination checks that number parses as a valid phone number
// for region. Short codes and alphanumeric senders fail this check but
// may still be deliverable, so callers treat the error as a warning.
func ValidateDestination(number, region string) error {
	parsed, err := phonenumbers.Parse(number, strings.ToUpper(region))
	if err != nil {
		return fmt.Errorf("parse %q: %w", number, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return fmt.Errorf("%q is not a valid number for region %s", number, region)
	}
	return nil
}

// E164 formats number for display, returning the trimmed input when it
// does not parse.
func E164(number, region string) string {
	trimmed := strings.TrimSpace(number)
	parsed, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
