// Package recipient decides who receives a purchase order dispatch.
package recipient

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

// Mailboxes is the configured address book. Purchasing and GoodsIn are optional.
type Mailboxes struct {
	Supplier   string
	Purchasing string
	GoodsIn    string
	Admin      string
}

// Resolve builds the recipient set. In verification mode everything goes to
// the administrator alone. Otherwise the supplier and the optional
// operational mailboxes are addressed directly and the administrator is
// copied.
func Resolve(mb Mailboxes, verification bool) (domain.RecipientSet, error) {
	if verification {
		admin := strings.TrimSpace(mb.Admin)
		if admin == "" {
			return domain.RecipientSet{}, fmt.Errorf("%w: verification mode requires an administrator address", domain.ErrRecipientResolution)
		}
		return domain.RecipientSet{To: []string{admin}, Cc: []string{}}, nil
	}

	if strings.TrimSpace(mb.Supplier) == "" {
		return domain.RecipientSet{}, fmt.Errorf("%w: supplier address is not configured", domain.ErrRecipientResolution)
	}
	to := dedupe(nil, mb.Supplier, mb.Purchasing, mb.GoodsIn)

	return domain.RecipientSet{
		To: to,
		Cc: dedupe(to, mb.Admin),
	}, nil
}

// dedupe returns the non-empty addresses not already in exclude, keeping the
// first spelling of each case-insensitive duplicate.
func dedupe(exclude []string, addresses ...string) []string {
	seen := make(map[string]bool, len(exclude)+len(addresses))
	for _, addr := range exclude {
		seen[strings.ToLower(addr)] = true
	}
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}
	return out
}
