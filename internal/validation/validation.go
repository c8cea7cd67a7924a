// Package validation applies form rules to request fields and collects
// per-field messages in the shape the JSON error envelope expects.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Errors maps a field name to its messages.
type Errors map[string][]string

// Validator accumulates rule failures. Rules other than Required and MaxBytes
// are skipped for empty values, so an optional field only fails when present.
type Validator struct {
	errs Errors
}

func New() *Validator {
	return &Validator{errs: make(Errors)}
}

func attribute(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// Add records msg for field.
func (v *Validator) Add(field, msg string) {
	v.errs[field] = append(v.errs[field], msg)
}

func (v *Validator) Has(field string) bool {
	return len(v.errs[field]) > 0
}

func (v *Validator) Valid() bool {
	return len(v.errs) == 0
}

func (v *Validator) Errors() Errors {
	return v.errs
}

// Required fails on empty or whitespace-only values and reports whether the value is present.
func (v *Validator) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.Add(field, fmt.Sprintf("The %s field is required.", attribute(field)))
		return false
	}
	return true
}

func (v *Validator) Email(field, value string) {
	if value == "" {
		return
	}
	if !IsEmail(value) {
		v.Add(field, fmt.Sprintf("The %s field must be a valid email address.", attribute(field)))
	}
}

// Max limits the length in characters.
func (v *Validator) Max(field, value string, n int) {
	if value == "" {
		return
	}
	if utf8.RuneCountInString(value) > n {
		v.Add(field, fmt.Sprintf("The %s field must not be greater than %d characters.", attribute(field), n))
	}
}

// MaxBytes limits the encoded length; bcrypt ignores input past 72 bytes.
func (v *Validator) MaxBytes(field, value string, n int) {
	if len(value) > n {
		v.Add(field, fmt.Sprintf("The %s field must not be greater than %d bytes.", attribute(field), n))
	}
}

func (v *Validator) Min(field, value string, n int) {
	if value == "" {
		return
	}
	if utf8.RuneCountInString(value) < n {
		v.Add(field, fmt.Sprintf("The %s field must be at least %d characters.", attribute(field), n))
	}
}

// Confirmed requires value to equal its "<field>_confirmation" companion.
func (v *Validator) Confirmed(field, value, confirmation string) {
	if value == "" {
		return
	}
	if value != confirmation {
		v.Add(field, fmt.Sprintf("The %s field confirmation does not match.", attribute(field)))
	}
}

func (v *Validator) Matches(field, value string, re *regexp.Regexp) {
	if value == "" {
		return
	}
	if !re.MatchString(value) {
		v.Add(field, fmt.Sprintf("The %s field format is invalid.", attribute(field)))
	}
}

func (v *Validator) In(field, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, fmt.Sprintf("The selected %s is invalid.", attribute(field)))
}

// Unique records the standard message when taken is true.
func (v *Validator) Unique(field string, taken bool) {
	if taken {
		v.Add(field, fmt.Sprintf("The %s has already been taken.", attribute(field)))
	}
}

// IsEmail checks if an email address is syntactically valid
func IsEmail(email string) bool {
	return emailRegex.MatchString(email)
}
