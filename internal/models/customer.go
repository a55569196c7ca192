package models

import (
	"errors"
	"strings"
	"time"
)

// CustomerKind distinguishes individual applicants from companies.
// The kind is derived solely from the identity number length: a 10-digit
// tax number means Company, an 11-digit national id means Individual.
type CustomerKind string

const (
	KindIndividual CustomerKind = "INDIVIDUAL"
	KindCompany    CustomerKind = "COMPANY"
)

// Identity number errors.
var (
	ErrIdentityNumberFormat   = errors.New("identity number must be a 10 or 11 digit numeric string")
	ErrIdentityNumberChecksum = errors.New("national id checksum is invalid")
	ErrBirthDateRequired      = errors.New("birth date is required for individual applicants")
)

// ApplicantIdentity is the applicant data collected at the Identity step.
// BirthDate is optional only when IdentityNumber is a 10-digit tax number.
type ApplicantIdentity struct {
	IdentityNumber string
	PhoneNumber    string
	BirthDate      *time.Time
	Email          string
}

// Kind derives the customer kind from the identity number length.
func (a ApplicantIdentity) Kind() (CustomerKind, error) {
	return KindFromIdentityNumber(a.IdentityNumber)
}

// Validate checks the identity number format and the birth date rule.
// It never performs a network call.
func (a ApplicantIdentity) Validate() error {
	kind, err := KindFromIdentityNumber(a.IdentityNumber)
	if err != nil {
		return err
	}
	if kind == KindIndividual && a.BirthDate == nil {
		return ErrBirthDateRequired
	}
	return nil
}

// KindFromIdentityNumber classifies an identity number and verifies its
// shape. 11-digit national ids additionally get a checksum verification;
// 10-digit tax numbers only need to be numeric.
func KindFromIdentityNumber(number string) (CustomerKind, error) {
	number = strings.TrimSpace(number)
	if !isDigits(number) {
		return "", ErrIdentityNumberFormat
	}
	switch len(number) {
	case 10:
		return KindCompany, nil
	case 11:
		if !validNationalID(number) {
			return "", ErrIdentityNumberChecksum
		}
		return KindIndividual, nil
	default:
		return "", ErrIdentityNumberFormat
	}
}

// validNationalID verifies the two check digits of an 11-digit national id.
// The tenth digit is ((odd positions)*7 - (even positions)) mod 10 over the
// first nine digits, the eleventh is the sum of the first ten mod 10.
func validNationalID(number string) bool {
	if len(number) != 11 || number[0] == '0' {
		return false
	}
	digits := make([]int, 11)
	for i := 0; i < 11; i++ {
		digits[i] = int(number[i] - '0')
	}
	odd, even := 0, 0
	for i := 0; i < 9; i += 2 {
		odd += digits[i]
	}
	for i := 1; i < 8; i += 2 {
		even += digits[i]
	}
	d10 := ((odd*7 - even) % 10 + 10) % 10
	if digits[9] != d10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		sum += digits[i]
	}
	return digits[10] == sum%10
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
