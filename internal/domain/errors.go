package domain

import "errors"

// Processing failures. Components wrap these with context; callers match
// them with errors.Is.
var (
	ErrSenderRejected      = errors.New("sender rejected")
	ErrMalformedInput      = errors.New("malformed purchase order email")
	ErrRender              = errors.New("label render failed")
	ErrRecipientResolution = errors.New("no deliverable recipient")
	ErrDispatch            = errors.New("email dispatch failed")
	ErrLedgerUnavailable   = errors.New("processed-order ledger unavailable")
	ErrEmptyArchive        = errors.New("archive requires at least one label")
)

// AlertSubject returns the administrator alert subject for a failure.
func AlertSubject(err error, poID string) string {
	subject := "Purchase order processing failed"
	switch {
	case errors.Is(err, ErrMalformedInput):
		subject = "Malformed purchase order email"
	case errors.Is(err, ErrRender):
		subject = "Barcode rendering failed"
	case errors.Is(err, ErrRecipientResolution):
		subject = "Purchase order recipients misconfigured"
	case errors.Is(err, ErrDispatch):
		subject = "Purchase order email could not be sent"
	}
	if poID != "" {
		subject += " (PO " + poID + ")"
	}
	return subject
}
