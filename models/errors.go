package models

import "strings"

// Error types consumed by helper.GetStatusCode, which maps them to HTTP
// status codes by concrete type.

// ErrorNotFound: the referenced document id is absent or soft-deleted.
type ErrorNotFound struct {
	Message string
}

func (e ErrorNotFound) Error() string {
	return e.Message
}

// ErrorValidation: a substantive save is missing its author or change
// description, or a publish attempt has unfilled required sections.
// Fields carries the offending field/section identifiers.
type ErrorValidation struct {
	Message string
	Fields  []string
}

func (e ErrorValidation) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// ErrorPersistence: the save transaction failed and was rolled back.
type ErrorPersistence struct {
	Message string
}

func (e ErrorPersistence) Error() string {
	return e.Message
}

// ErrorPublish: the Confluence collaborator failed; recorded as document
// state (status=error, last_error), not re-raised as a transaction abort.
type ErrorPublish struct {
	Message string
}

func (e ErrorPublish) Error() string {
	return e.Message
}
