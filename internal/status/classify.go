// Package status classifies raw listings into lifecycle states. Pure
// functions only; the sync engine uses them to decide inclusion in the
// sold-listing store.
package status

import (
	"strings"
	"time"

	"github.com/metrolist/listing-sync/internal/model"
)

// Status is the classified lifecycle state of a listing.
type Status string

const (
	// NotTerminal means the listing is still on market and must be skipped
	// by the sold sync.
	NotTerminal Status = "NotTerminal"

	Sold       Status = "Sold"
	Terminated Status = "Terminated"
	Expired    Status = "Expired"
	Canceled   Status = "Canceled"
	Closed     Status = "Closed"
)

// Terminal reports whether the status means the listing is off market.
func (s Status) Terminal() bool {
	return s != NotTerminal && s != ""
}

// statusKeys are probed in order on each payload for the current status.
var statusKeys = []string{"MlsStatus", "StandardStatus", "Status"}

// onMarket lists statuses that always win over any sold-looking signal in the
// restricted payload. Checked before the terminal set; the ordering is
// load-bearing.
var onMarket = map[string]bool{
	"active":                true,
	"for sale":              true,
	"new":                   true,
	"coming soon":           true,
	"pending":               true,
	"active under contract": true,
}

var terminal = map[string]Status{
	"sold":       Sold,
	"terminated": Terminated,
	"expired":    Expired,
	"canceled":   Canceled,
	"closed":     Closed,
}

// closeSignalKeys mark a restricted payload as sold-looking when no status
// string is present at all.
var closeSignalKeys = []string{"ClosePrice", "SoldEntryTimestamp", "CloseDate"}

// Classify maps a raw listing to its lifecycle state. The current status is
// read from the public payload, falling back to the restricted payload. When
// no recognizable status string exists, payload shape decides: a non-empty
// public payload means still listed; a restricted payload carrying a close
// signal means sold.
func Classify(l *model.Listing) Status {
	raw := currentStatus(l)
	norm := strings.ToLower(strings.TrimSpace(raw))

	if onMarket[norm] {
		return NotTerminal
	}
	if st, ok := terminal[norm]; ok {
		return st
	}

	// No recognizable status string: infer from shape.
	if len(l.Public) > 0 {
		return NotTerminal
	}
	if len(l.Restricted) > 0 {
		for _, k := range closeSignalKeys {
			if l.Restricted.Has(k) {
				return Sold
			}
		}
	}
	return NotTerminal
}

func currentStatus(l *model.Listing) string {
	if s := l.Public.FirstString(statusKeys...); s != "" {
		return s
	}
	return l.Restricted.FirstString(statusKeys...)
}

// closeDateKeys are probed in order on the restricted payload.
var closeDateKeys = []string{"CloseDate", "SoldEntryTimestamp", "PurchaseContractDate"}

// closeDateLayouts cover the date shapes the feeds actually produce.
var closeDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ClosedDate extracts the calendar day a terminal listing closed on: the
// first parseable of CloseDate, SoldEntryTimestamp, PurchaseContractDate from
// the restricted payload, truncated to day precision in UTC. Returns nil when
// absent or unparseable.
func ClosedDate(l *model.Listing) *time.Time {
	for _, key := range closeDateKeys {
		raw := strings.TrimSpace(l.Restricted.String(key))
		if raw == "" {
			continue
		}
		for _, layout := range closeDateLayouts {
			ts, err := time.Parse(layout, raw)
			if err != nil {
				continue
			}
			day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}
