package api

import (
	"regexp"
	"strings"

	"taskzen-api/domain"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const minPasswordLength = 6

type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r registerRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if strings.TrimSpace(r.Name) == "" {
		errs.add("name", "Name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(r.Email)) {
		errs.add("email", "A valid email is required")
	}
	if len(r.Password) < minPasswordLength {
		errs.add("password", "Password must be at least 6 characters")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) validate() fieldErrors {
	errs := fieldErrors{}
	if strings.TrimSpace(r.Email) == "" {
		errs.add("email", "Email is required")
	}
	if r.Password == "" {
		errs.add("password", "Password is required")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validatePathID rejects id params that cannot possibly match a stored
// document before any storage round trip.
func validatePathID(id string) fieldErrors {
	if domain.ValidID(id) {
		return nil
	}
	return fieldErrors{"id": {"Invalid ID format"}}
}
