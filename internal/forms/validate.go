package forms

import (
	"regexp"
	"strings"
	"time"

	"github.com/leonardcser/web-offline/internal/queue"
)

const (
	msgRequired = "This field is required"
	msgEmail    = "Please enter a valid email address"
	msgPhone    = "Please enter a valid phone number"
	msgBirth    = "Please enter a valid date of birth"
	msgTerms    = "You must agree to the terms and conditions"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Ghana numbers: +233XXXXXXXXX or 0XXXXXXXXX.
	phoneRe = regexp.MustCompile(`^(\+233|0)[0-9]{9}$`)
)

var requiredFields = map[string][]string{
	queue.Contact: {"contactName", "contactEmail", "contactSubject", "contactMessage"},
	queue.Registration: {
		"firstName", "lastName", "dateOfBirth", "gender", "program",
		"parentName", "relationship", "parentPhone", "address",
	},
}

// Errors maps a field name to the message shown next to it.
type Errors map[string]string

// Validate checks fields against the rules of the named form.
func Validate(name string, fields map[string]string, now time.Time) Errors {
	errs := Errors{}
	for _, f := range requiredFields[name] {
		if strings.TrimSpace(fields[f]) == "" {
			errs[f] = msgRequired
		}
	}
	switch name {
	case queue.Contact:
		checkEmail(errs, fields, "contactEmail")
		checkPhone(errs, fields, "contactPhone")
	case queue.Registration:
		checkEmail(errs, fields, "parentEmail")
		checkPhone(errs, fields, "parentPhone")
		if v := fields["dateOfBirth"]; v != "" && !ValidAge(v, now) {
			errs["dateOfBirth"] = msgBirth
		}
		if !checked(fields["terms"]) {
			errs["terms"] = msgTerms
		}
	}
	return errs
}

func checkEmail(errs Errors, fields map[string]string, f string) {
	if v := fields[f]; v != "" && !ValidEmail(v) {
		errs[f] = msgEmail
	}
}

func checkPhone(errs Errors, fields map[string]string, f string) {
	if v := fields[f]; v != "" && !ValidPhone(v) {
		errs[f] = msgPhone
	}
}

func ValidEmail(s string) bool { return emailRe.MatchString(s) }

// ValidPhone ignores whitespace inside the number.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(strings.Join(strings.Fields(s), ""))
}

// ValidAge reports whether a YYYY-MM-DD birth date gives an age between 3
// and 25 on now.
func ValidAge(dob string, now time.Time) bool {
	birth, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return false
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age >= 3 && age <= 25
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes", "checked":
		return true
	}
	return false
}
