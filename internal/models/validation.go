package models

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Bounds shared by the creation and claim forms. The on-chain program
// enforces the same limits; these checks reject bad input before any
// call is built.
const (
	IdentifierLength = 6
	MaxClaimerName   = 50
	MinReceiverLimit = 1
	MaxReceiverLimit = 100000
	MaxMessageLength = 200
)

var identifierPattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// FieldError is a failed predicate with a human-readable reason.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// NormalizeIdentifier accepts a bare identifier or a share link carrying
// the identifier as an id query parameter, and returns the uppercased
// token. It does not validate the result.
func NormalizeIdentifier(input string) string {
	s := strings.TrimSpace(input)
	if strings.Contains(s, "://") || strings.Contains(s, "?") {
		if u, err := url.Parse(s); err == nil {
			if id := u.Query().Get("id"); id != "" {
				s = id
			}
		}
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateIdentifier checks the 6-character [A-Z0-9] identifier shape.
func ValidateIdentifier(id string) *FieldError {
	if id == "" {
		return &FieldError{Field: "droplet_id", Reason: "Droplet ID is required"}
	}
	if !identifierPattern.MatchString(id) {
		return &FieldError{Field: "droplet_id", Reason: "Droplet ID must be exactly 6 uppercase alphanumeric characters"}
	}
	return nil
}

// ValidateClaimerName checks the trimmed name length is in [1, 50].
func ValidateClaimerName(name string) *FieldError {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return &FieldError{Field: "claimer_name", Reason: "Name is required"}
	}
	if utf8.RuneCountInString(trimmed) > MaxClaimerName {
		return &FieldError{Field: "claimer_name", Reason: "Name must be at most 50 characters"}
	}
	return nil
}

// ValidateAmount checks the amount parses as a positive finite decimal.
func ValidateAmount(amount string) *FieldError {
	if amount == "" {
		return &FieldError{Field: "amount", Reason: "Amount is required"}
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return &FieldError{Field: "amount", Reason: "Amount must be greater than 0"}
	}
	return nil
}

// ValidateReceiverLimit checks the limit is an integer in [1, 100000].
func ValidateReceiverLimit(limit int64) *FieldError {
	if limit < MinReceiverLimit || limit > MaxReceiverLimit {
		return &FieldError{Field: "receiver_limit", Reason: "Receiver limit must be between 1 and 100,000"}
	}
	return nil
}

// ValidateExpiryHours checks an expiry, when provided, is greater than
// zero. Absence is allowed and means the ledger-side default.
func ValidateExpiryHours(hours *int64) *FieldError {
	if hours != nil && *hours <= 0 {
		return &FieldError{Field: "expiry_hours", Reason: "Expiry hours must be greater than 0"}
	}
	return nil
}

// ValidateMessage checks an optional message is at most 200 characters.
func ValidateMessage(message string) *FieldError {
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return &FieldError{Field: "message", Reason: "Message must be at most 200 characters"}
	}
	return nil
}

// ValidateCreate runs every creation-form predicate independently and
// reports all failures.
func ValidateCreate(req *CreateRequest) []FieldError {
	var errs []FieldError
	if e := ValidateAmount(req.Amount); e != nil {
		errs = append(errs, *e)
	}
	if e := ValidateReceiverLimit(req.ReceiverLimit); e != nil {
		errs = append(errs, *e)
	}
	if e := ValidateExpiryHours(req.ExpiryHours); e != nil {
		errs = append(errs, *e)
	}
	if e := ValidateMessage(req.Message); e != nil {
		errs = append(errs, *e)
	}
	return errs
}

// ValidateClaim runs both claim-form predicates independently and
// reports all failures.
func ValidateClaim(req *ClaimRequest) []FieldError {
	var errs []FieldError
	if e := ValidateIdentifier(req.DropletID); e != nil {
		errs = append(errs, *e)
	}
	if e := ValidateClaimerName(req.ClaimerName); e != nil {
		errs = append(errs, *e)
	}
	return errs
}
