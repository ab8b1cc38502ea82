// internal/domain/models.go
package domain

// Variant is a single item line of a purchase order.
type Variant struct {
	ItemCode    string `json:"item_code"`
	Description string `json:"description"`
}

// PurchaseOrder is the parsed content of one WMS email
type PurchaseOrder struct {
	ID       string    `json:"id"`
	Variants []Variant `json:"variants"`
}

// ArchiveName returns the attachment filename for the order.
func (po PurchaseOrder) ArchiveName() string {
	return ArchiveName(po.ID)
}

// ArchiveName returns "<id>.zip".
func ArchiveName(poID string) string {
	return poID + ".zip"
}

// LabelImage is the rendered PNG for one variant.
// Index is the variant's position in the order and drives archive ordering.
type LabelImage struct {
	Index       int
	ItemCode    string
	Description string
	PNG         []byte
}

// Archive is the zip bundle sent to recipients
type Archive struct {
	Name    string
	Members []string
	Data    []byte
}

// RecipientSet holds resolved mailbox addresses for one dispatch
type RecipientSet struct {
	To []string `json:"to"`
	Cc []string `json:"cc"`
}

// InboundEmail is a single trigger payload
type InboundEmail struct {
	Sender string
	Body   string
}

// Outcome summarises one processing invocation
type Outcome struct {
	State           State        `json:"state"`
	PurchaseOrderID string       `json:"po,omitempty"`
	ArchiveName     string       `json:"archive,omitempty"`
	Recipients      RecipientSet `json:"recipients"`
	Reason          string       `json:"reason,omitempty"`
	Trace           []State      `json:"trace"`
}

// Message returns a short human readable summary of the outcome.
func (o Outcome) Message() string {
	switch o.State {
	case StateSkipped:
		if o.Reason != "" {
			return "PO " + o.PurchaseOrderID + " skipped: " + o.Reason
		}
		return "PO " + o.PurchaseOrderID + " was already processed."
	case StateRecorded:
		return "Successfully processed PO " + o.PurchaseOrderID + "."
	case StateAlerted:
		return "Administrator alerted: " + o.Reason
	default:
		return "Processing stopped at " + o.State.String()
	}
}
