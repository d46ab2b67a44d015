// Package validate holds the synchronous, side-effect-free field rules run
// before a registration step may advance. A rule returns nil or a
// human-readable reason; nothing here touches shared state or the network.
package validate

import (
	"fmt"
	"regexp"
	"unicode"
)

var (
	// Old-format NICs are nine digits plus V/X; the 2016 format is twelve
	// digits.
	nicOldPattern = regexp.MustCompile(`^[0-9]{9}[VvXx]$`)
	nicNewPattern = regexp.MustCompile(`^[0-9]{12}$`)

	// Local ten-digit numbers or the +94 international form.
	mobilePattern = regexp.MustCompile(`^(0[0-9]{9}|\+94[0-9]{9})$`)

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Rule checks one field. The full value set is supplied for cross-field
// rules; most rules ignore it.
type Rule func(value string, all map[string]string) error

// Required fails on an empty value with the fixed missing-field message.
func Required(label string) Rule {
	return func(value string, _ map[string]string) error {
		if value == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}

// MinLen passes empty optional values; Required guards presence separately.
func MinLen(label string, n int) Rule {
	return func(value string, _ map[string]string) error {
		if value == "" {
			return nil
		}
		if len(value) < n {
			return fmt.Errorf("%s must be at least %d characters", label, n)
		}
		return nil
	}
}

func MaxLen(label string, n int) Rule {
	return func(value string, _ map[string]string) error {
		if len(value) > n {
			return fmt.Errorf("%s must be %d characters or less", label, n)
		}
		return nil
	}
}

// Pattern matches value against re, passing empty values through.
func Pattern(re *regexp.Regexp, reason string) Rule {
	return func(value string, _ map[string]string) error {
		if value == "" {
			return nil
		}
		if !re.MatchString(value) {
			return fmt.Errorf("%s", reason)
		}
		return nil
	}
}

// NIC accepts both national ID formats.
func NIC() Rule {
	return func(value string, _ map[string]string) error {
		if value == "" {
			return nil
		}
		if !nicOldPattern.MatchString(value) && !nicNewPattern.MatchString(value) {
			return fmt.Errorf("enter a valid NIC number")
		}
		return nil
	}
}

func Mobile() Rule {
	return Pattern(mobilePattern, "enter a valid mobile number")
}

func Email() Rule {
	return Pattern(emailPattern, "enter a valid email address")
}

// Password enforces the minimum strength: eight characters with at least one
// uppercase letter, one lowercase letter and one digit.
func Password() Rule {
	return func(value string, _ map[string]string) error {
		if value == "" {
			return nil
		}
		if len(value) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}
		var upper, lower, digit bool
		for _, r := range value {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		if !upper || !lower || !digit {
			return fmt.Errorf("password must include an uppercase letter, a lowercase letter and a digit")
		}
		return nil
	}
}

// MatchesField enforces cross-field equality, e.g. password confirmation.
func MatchesField(other, reason string) Rule {
	return func(value string, all map[string]string) error {
		if value == "" {
			return nil
		}
		if value != all[other] {
			return fmt.Errorf("%s", reason)
		}
		return nil
	}
}

// FieldRules maps field names to their ordered rule chains.
type FieldRules map[string][]Rule

// Validate runs a single field's chain, returning the first failure.
func (r FieldRules) Validate(field, value string, all map[string]string) error {
	for _, rule := range r[field] {
		if err := rule(value, all); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAll runs every field's chain against the value set, collecting the
// first failure per field. Fields absent from the value set run with "" so
// required rules still fire.
func (r FieldRules) ValidateAll(all map[string]string) map[string]string {
	failures := make(map[string]string)
	for field := range r {
		if err := r.Validate(field, all[field], all); err != nil {
			failures[field] = err.Error()
		}
	}
	return failures
}

// BasicInfo is the rule set for the first registration step.
func BasicInfo() FieldRules {
	return FieldRules{
		"fullName":     {Required("full name"), MaxLen("full name", 128)},
		"mobileNumber": {Required("mobile number"), Mobile()},
		"nic":          {Required("NIC"), NIC()},
		"title":        {Required("title")},
		"address":      {Required("address"), MaxLen("address", 256)},
	}
}

// Account is the rule set for admin-created portal accounts.
func Account() FieldRules {
	return FieldRules{
		"name":            {Required("name"), MaxLen("name", 128)},
		"email":           {Required("email"), Email()},
		"password":        {Required("password"), Password()},
		"confirmPassword": {Required("password confirmation"), MatchesField("password", "passwords do not match")},
	}
}
