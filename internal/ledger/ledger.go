// Package ledger records which purchase orders have already been dispatched.
//
// The ledger is an append-only list of lines, one PO id per line, with set
// semantics: an id is processed if any line equals it. It is the only
// idempotency mechanism and performs no locking; callers serialise
// invocations per PO.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

// Ledger answers "was this PO handled?" and records newly handled POs.
type Ledger interface {
	Contains(ctx context.Context, poID string) (bool, error)
	Append(ctx context.Context, poID string) error
}

// Store is a durable line-oriented resource. A missing resource reads as
// empty. AppendLine must never truncate or reorder existing lines.
type Store interface {
	Lines(ctx context.Context) ([]string, error)
	AppendLine(ctx context.Context, line string) error
}

// LineLedger implements Ledger over any Store.
type LineLedger struct {
	store Store
}

// New wraps a Store.
func New(store Store) *LineLedger {
	return &LineLedger{store: store}
}

// Contains reads every line and reports whether one equals poID.
func (l *LineLedger) Contains(ctx context.Context, poID string) (bool, error) {
	lines, err := l.store.Lines(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: read: %v", domain.ErrLedgerUnavailable, err)
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == poID {
			return true, nil
		}
	}
	return false, nil
}

// Append records poID as a new line.
func (l *LineLedger) Append(ctx context.Context, poID string) error {
	if err := validateID(poID); err != nil {
		return err
	}
	if err := l.store.AppendLine(ctx, poID); err != nil {
		return fmt.Errorf("%w: append %s: %v", domain.ErrLedgerUnavailable, poID, err)
	}
	return nil
}

// IDs returns the distinct recorded ids in first-seen order.
func (l *LineLedger) IDs(ctx context.Context) ([]string, error) {
	lines, err := l.store.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", domain.ErrLedgerUnavailable, err)
	}
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func validateID(poID string) error {
	if strings.TrimSpace(poID) == "" || strings.ContainsAny(poID, "\r\n") {
		return fmt.Errorf("invalid ledger id %q", poID)
	}
	return nil
}

var _ Ledger = (*LineLedger)(nil)
