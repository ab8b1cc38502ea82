// Package extract parses WMS purchase order emails into domain records.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

// MarkerStyle is the inline style the WMS template puts on every variant cell.
const MarkerStyle = "font-family:Arial; font-size:14px; color:gray; padding-top:10px;"

var normalizedMarker = normalizeStyle(MarkerStyle)

type row struct {
	poID    string
	variant domain.Variant
}

// Parse extracts the purchase order described by an HTML email body.
// It fails with domain.ErrMalformedInput when no variant row parses or when
// rows disagree on the PO id.
func Parse(body string) (domain.PurchaseOrder, error) {
	if strings.TrimSpace(body) == "" {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: empty email body", domain.ErrMalformedInput)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("%w: parse html: %v", domain.ErrMalformedInput, err)
	}

	var (
		order   domain.PurchaseOrder
		markers int
		failure error
	)
	doc.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		style, ok := cell.Attr("style")
		if !ok || normalizeStyle(style) != normalizedMarker {
			return true
		}
		markers++

		r, ok := parseRow(cell.Text())
		if !ok {
			return true
		}
		if order.ID == "" {
			order.ID = r.poID
		} else if r.poID != order.ID {
			failure = fmt.Errorf("%w: email references PO %q and PO %q", domain.ErrMalformedInput, order.ID, r.poID)
			return false
		}
		order.Variants = append(order.Variants, r.variant)
		return true
	})
	if failure != nil {
		return domain.PurchaseOrder{}, failure
	}

	if len(order.Variants) == 0 {
		if markers == 0 {
			return domain.PurchaseOrder{}, fmt.Errorf("%w: no purchase order rows found", domain.ErrMalformedInput)
		}
		return domain.PurchaseOrder{}, fmt.Errorf("%w: %d candidate rows, none well-formed", domain.ErrMalformedInput, markers)
	}

	return order, nil
}

// parseRow reads "PO: <id> | Item: <code> | Desc: <description>".
// The description keeps any further pipes.
func parseRow(text string) (row, bool) {
	segments := strings.SplitN(collapseSpace(text), "|", 3)
	if len(segments) != 3 {
		return row{}, false
	}

	poID, ok := labelled(segments[0], "po")
	if !ok || poID == "" {
		return row{}, false
	}
	itemCode, ok := labelled(segments[1], "item")
	if !ok || itemCode == "" {
		return row{}, false
	}
	description, ok := labelled(segments[2], "desc")
	if !ok {
		return row{}, false
	}

	return row{
		poID: poID,
		variant: domain.Variant{
			ItemCode:    itemCode,
			Description: description,
		},
	}, true
}

func labelled(segment, label string) (string, bool) {
	name, value, found := strings.Cut(segment, ":")
	if !found || !strings.EqualFold(strings.TrimSpace(name), label) {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeStyle(style string) string {
	s := strings.ToLower(strings.Join(strings.Fields(style), ""))
	return strings.TrimSuffix(s, ";")
}
