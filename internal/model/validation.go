package model

import (
	"sort"
	"strings"
)

// ValidationErrors maps an input field to the reason it was rejected.
type ValidationErrors map[string]string

// Add records a failure for field, keeping the first reason reported.
func (v ValidationErrors) Add(field, reason string) {
	if _, exists := v[field]; !exists {
		v[field] = reason
	}
}

// Err returns nil when no field failed, otherwise a Validation domain error.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}

	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return &DomainError{
		Kind:    KindValidation,
		Code:    ErrCodeValidation,
		Message: "validation failed: " + strings.Join(fields, ", "),
		Fields:  map[string]string(v),
	}
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
