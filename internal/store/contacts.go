package store

import (
	"regexp"
)

// ContactInput carries the editable fields shared by customers and
// suppliers.
type ContactInput struct {
	Name  string
	Phone string
	Email string
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validateContact(in *ContactInput) error {
	if in.Name == "" {
		return invalidf("name", "must not be empty")
	}

	if in.Phone != "" {
		digits := nonDigits.ReplaceAllString(in.Phone, "")
		if len(digits) < 8 || len(digits) > 15 {
			return invalidf("phone", "must contain 8 to 15 digits")
		}
	}

	if in.Email != "" && !emailPattern.MatchString(in.Email) {
		return invalidf("email", "must be a valid address")
	}

	return nil
}
