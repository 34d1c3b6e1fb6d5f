// Package validate checks request parameters against declared schemas
// before any store operation runs.
//
// A schema is an ordered list of fields, each with an ordered list of rules.
// Rules other than Required and RequiredWith only run when the field is
// present, so optional fields are validated only when supplied. The first
// failing rule of a field wins; every failing field is reported.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// Messages reported to callers.
const (
	MsgRequired     = "This field is required."
	MsgDateFormat   = "date format invalid. Format: 1999-01-01"
	msgRequiredWith = "'%s' is required with '%s'"
	msgAfterOrEqual = "'%s' field must be after or equal to '%s'"
	msgNumeric      = "The %s must be a number."
	msgInteger      = "The %s must be an integer."
	msgMin          = "The %s must be at least %d."
)

// dateRegex matches 4-digit year, 2-digit month, 2-digit day.
// time.Parse then rejects impossible dates such as 2020-02-30.
var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Input is the flattened set of request parameters. Empty values count as
// absent.
type Input map[string]string

// Has reports whether the field is present with a non-empty value.
func (in Input) Has(name string) bool {
	return in[name] != ""
}

// Get returns the field value or "".
func (in Input) Get(name string) string {
	return in[name]
}

// Rule is a single constraint on a field. The returned string is the
// failure message, empty when the rule passes.
type Rule struct {
	implicit bool
	check    func(in Input, field string) string
}

// Field binds a parameter name to its rules.
type Field struct {
	Name  string
	Rules []Rule
}

// Schema is an ordered list of fields.
type Schema []Field

// Error lists every failing field with its messages.
type Error struct {
	Fields map[string][]string `json:"fields"`
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], ", "))
	}
	return "validate: " + strings.Join(parts, "; ")
}

// Validate runs the schema against in. It returns nil or an *Error.
func (s Schema) Validate(in Input) error {
	var failed map[string][]string
	for _, f := range s {
		for _, rule := range f.Rules {
			if !rule.implicit && !in.Has(f.Name) {
				continue
			}
			if msg := rule.check(in, f.Name); msg != "" {
				if failed == nil {
					failed = make(map[string][]string)
				}
				failed[f.Name] = append(failed[f.Name], msg)
				break
			}
		}
	}
	if failed != nil {
		return &Error{Fields: failed}
	}
	return nil
}

// Required fails when the field is absent.
func Required() Rule {
	return Rule{implicit: true, check: func(in Input, field string) string {
		if !in.Has(field) {
			return MsgRequired
		}
		return ""
	}}
}

// RequiredWith fails when other is present and the field is absent.
func RequiredWith(other string) Rule {
	return Rule{implicit: true, check: func(in Input, field string) string {
		if in.Has(other) && !in.Has(field) {
			return fmt.Sprintf(msgRequiredWith, label(field), label(other))
		}
		return ""
	}}
}

// DateFormat requires a valid YYYY-MM-DD calendar date.
func DateFormat() Rule {
	return Rule{check: func(in Input, field string) string {
		if _, err := ParseDate(in.Get(field)); err != nil {
			return MsgDateFormat
		}
		return ""
	}}
}

// AfterOrEqual requires the field date to be on or after the other field's
// date. An absent other field fails the rule; a malformed one is left to
// that field's own rules.
func AfterOrEqual(other string) Rule {
	return Rule{check: func(in Input, field string) string {
		msg := fmt.Sprintf(msgAfterOrEqual, label(field), label(other))
		if !in.Has(other) {
			return msg
		}
		start, err := ParseDate(in.Get(other))
		if err != nil {
			return ""
		}
		end, err := ParseDate(in.Get(field))
		if err != nil {
			return ""
		}
		if end.Before(start) {
			return msg
		}
		return ""
	}}
}

// Numeric requires an integer or decimal number, optionally in exponent
// form, that ParseNumber accepts.
func Numeric() Rule {
	return Rule{check: func(in Input, field string) string {
		if _, err := ParseNumber(in.Get(field)); err != nil {
			return fmt.Sprintf(msgNumeric, field)
		}
		return ""
	}}
}

// Integer requires a base-10 integer.
func Integer() Rule {
	return Rule{check: func(in Input, field string) string {
		if _, err := strconv.Atoi(in.Get(field)); err != nil {
			return fmt.Sprintf(msgInteger, field)
		}
		return ""
	}}
}

// Min requires a numeric value of at least n.
func Min(n int) Rule {
	return Rule{check: func(in Input, field string) string {
		v, err := ParseNumber(in.Get(field))
		if err != nil || v.LessThan(decimal.NewFromInt(int64(n))) {
			return fmt.Sprintf(msgMin, field, n)
		}
		return ""
	}}
}

// Decimal128 bounds. Values outside them cannot be stored exactly, and
// rendering a value with a huge exponent costs memory proportional to it.
const (
	maxDigits   = 34
	minExponent = -6176
	maxExponent = 6111
)

// ErrNumberRange is returned by ParseNumber for values outside Decimal128.
var ErrNumberRange = errors.New("validate: number out of range")

// ParseNumber parses a decimal number whose coefficient and exponent fit
// in a Decimal128.
func ParseNumber(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	exp := d.Exponent()
	if d.NumDigits() > maxDigits || exp < minExponent || exp > maxExponent {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNumberRange, s)
	}
	return d, nil
}

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	if !dateRegex.MatchString(s) {
		return time.Time{}, fmt.Errorf("validate: invalid date %q (expected YYYY-MM-DD)", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("validate: invalid date %q: %w", s, err)
	}
	return t, nil
}

func label(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
