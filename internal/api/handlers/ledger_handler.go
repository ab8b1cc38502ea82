package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// LedgerReader answers whether a purchase order was already processed.
type LedgerReader interface {
	Contains(ctx context.Context, poID string) (bool, error)
}

type LedgerHandler struct {
	ledger LedgerReader
}

func NewLedgerHandler(ledger LedgerReader) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// GetStatus reports whether :po is recorded in the processed-order ledger.
func (h *LedgerHandler) GetStatus(c *gin.Context) {
	poID := strings.TrimSpace(c.Param("po"))
	if poID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "po is required"})
		return
	}

	processed, err := h.ledger.Contains(c.Request.Context(), poID)
	if err != nil {
		c.JSON(StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"po": poID, "processed": processed})
}
