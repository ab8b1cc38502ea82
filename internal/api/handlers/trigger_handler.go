package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

// maxBodyBytes bounds the email body read from a trigger request.
const maxBodyBytes = 5 << 20

// Processor handles one inbound email.
type Processor interface {
	Process(ctx context.Context, email domain.InboundEmail) (domain.Outcome, error)
}

type TriggerHandler struct {
	processor Processor
	log       zerolog.Logger
}

func NewTriggerHandler(processor Processor, log zerolog.Logger) *TriggerHandler {
	return &TriggerHandler{processor: processor, log: log}
}

type triggerResponse struct {
	domain.Outcome
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// GenerateBarcodes accepts the raw HTML body of a forwarded WMS email.
func (h *TriggerHandler) GenerateBarcodes(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}
	if len(body) > maxBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}

	email := domain.InboundEmail{
		Sender: SenderFromHeaders(c.Request.Header),
		Body:   string(body),
	}

	outcome, err := h.processor.Process(c.Request.Context(), email)
	resp := triggerResponse{Outcome: outcome, Message: outcome.Message()}
	if err != nil {
		resp.Error = err.Error()
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("po", outcome.PurchaseOrderID).Msg("processing failed")
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SenderFromHeaders reads the sender from X-Sender, falling back to the first
// address-like entry of X-Forwarded-For as set by the mail forwarder.
func SenderFromHeaders(h http.Header) string {
	if sender := strings.TrimSpace(h.Get("X-Sender")); sender != "" {
		return sender
	}
	for _, part := range strings.Split(h.Get("X-Forwarded-For"), ",") {
		if part = strings.TrimSpace(part); strings.Contains(part, "@") {
			return part
		}
	}
	return ""
}

// StatusFor maps a processing error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSenderRejected):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDispatch):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
