// Package logdetail formats and parses the details text of audit log entries.
//
// The text is read back by log viewers, so the rendered forms below are a
// stable contract shared with every release that wrote them:
//
//	Manual adjustment on ITEM001 by -3. Reason: damaged
//	Confirmed stock receipt for ITEM001 with qty 20
//	Updated stock for ITEM001 to 40
//	Added new item: ITEM001
//	Rejected purchase requisition: PR002 - Reason: over budget
//
// Parse never fails; text it does not recognise comes back as KindText.
package logdetail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a details string.
type Kind string

// Detail kinds.
const (
	KindAdjustment Kind = "adjustment"
	KindReceipt    Kind = "receipt"
	KindStockSet   Kind = "stock_set"
	KindRecord     Kind = "record"
	KindText       Kind = "text"
)

// Verbs used by record details.
const (
	VerbAdded     = "Added new"
	VerbCreated   = "Created new"
	VerbUpdated   = "Updated"
	VerbEdited    = "Edited"
	VerbDeleted   = "Deleted"
	VerbApproved  = "Approved"
	VerbRejected  = "Rejected"
	VerbCompleted = "Completed"
	VerbCancelled = "Cancelled"
)

// ordered so that multi-word verbs match before their prefixes
var verbs = []string{VerbAdded, VerbCreated, VerbUpdated, VerbEdited, VerbDeleted, VerbApproved, VerbRejected, VerbCompleted, VerbCancelled}

// Detail is the structured form of an audit details string.
type Detail struct {
	Kind     Kind
	Verb     string // record details only
	Noun     string // record details only, e.g. "item", "purchase requisition"
	Key      string // item code for stock details, record key otherwise
	Quantity int    // delta for adjustments, absolute quantity otherwise
	Reason   string
	Text     string // raw text for KindText
}

// Adjustment describes a manual stock adjustment.
func Adjustment(itemCode string, delta int, reason string) Detail {
	return Detail{Kind: KindAdjustment, Key: itemCode, Quantity: delta, Reason: reason}
}

// Receipt describes stock received against a purchase order.
func Receipt(itemCode string, qty int) Detail {
	return Detail{Kind: KindReceipt, Key: itemCode, Quantity: qty}
}

// StockSet describes an absolute stock quantity change.
func StockSet(itemCode string, qty int) Detail {
	return Detail{Kind: KindStockSet, Key: itemCode, Quantity: qty}
}

// Record describes a create, update, delete or status change of a record.
func Record(verb, noun, key string) Detail {
	return Detail{Kind: KindRecord, Verb: verb, Noun: noun, Key: key}
}

// Rejection describes a rejected record together with the reason given.
func Rejection(noun, key, reason string) Detail {
	return Detail{Kind: KindRecord, Verb: VerbRejected, Noun: noun, Key: key, Reason: reason}
}

// String renders the legacy text form.
func (d Detail) String() string {
	switch d.Kind {
	case KindAdjustment:
		return fmt.Sprintf("Manual adjustment on %s by %d. Reason: %s", d.Key, d.Quantity, d.Reason)
	case KindReceipt:
		return fmt.Sprintf("Confirmed stock receipt for %s with qty %d", d.Key, d.Quantity)
	case KindStockSet:
		return fmt.Sprintf("Updated stock for %s to %d", d.Key, d.Quantity)
	case KindRecord:
		s := d.Verb + " " + d.Noun + ": " + d.Key
		if d.Reason != "" {
			s += " - Reason: " + d.Reason
		}
		return s
	default:
		return d.Text
	}
}

// IsStockMovement reports whether the detail records a stock quantity change.
func (d Detail) IsStockMovement() bool {
	switch d.Kind {
	case KindAdjustment, KindReceipt, KindStockSet:
		return true
	}
	return false
}

var (
	adjustmentRE = regexp.MustCompile(`(?s)^Manual adjustment on (.+?) by (-?\d+)\. Reason: (.*)$`)
	receiptRE    = regexp.MustCompile(`^Confirmed stock receipt for (.+) with qty (-?\d+)$`)
	stockSetRE   = regexp.MustCompile(`^Updated stock for (.+) to (-?\d+)$`)
)

const reasonSep = " - Reason: "

// Parse recovers the structured form of a details string.
func Parse(s string) Detail {
	if m := adjustmentRE.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return Adjustment(m[1], n, m[3])
		}
	}
	if m := receiptRE.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return Receipt(m[1], n)
		}
	}
	if m := stockSetRE.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			return StockSet(m[1], n)
		}
	}
	if d, ok := parseRecord(s); ok {
		return d
	}
	return Detail{Kind: KindText, Text: s}
}

func parseRecord(s string) (Detail, bool) {
	for _, verb := range verbs {
		if !strings.HasPrefix(s, verb+" ") {
			continue
		}
		rest := s[len(verb)+1:]
		colon := strings.Index(rest, ": ")
		if colon <= 0 {
			return Detail{}, false
		}
		d := Detail{Kind: KindRecord, Verb: verb, Noun: rest[:colon], Key: rest[colon+2:]}
		if verb == VerbRejected {
			if i := strings.Index(d.Key, reasonSep); i >= 0 {
				d.Reason = d.Key[i+len(reasonSep):]
				d.Key = d.Key[:i]
			}
		}
		return d, true
	}
	return Detail{}, false
}
