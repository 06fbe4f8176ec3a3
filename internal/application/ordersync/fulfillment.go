package ordersync

import (
	"github.com/marketship/backend/internal/domain/order"
)

// allocCandidate is one fulfillment-order line item with quantity still
// available to consume.
type allocCandidate struct {
	fulfillmentOrderID string
	lineID             string
	remaining          int
}

// Allocator greedily assigns requested line-item quantities to a fixed
// snapshot of fulfillment-order line items. One allocator is shared across
// all seller groups of a sync run, so quantities consumed by one group are
// not offered to the next.
type Allocator struct {
	byLineItem map[string][]*allocCandidate // source line item id -> candidates in listing order
}

// NewAllocator snapshots the order's fulfillment orders.
func NewAllocator(fulfillmentOrders []order.FulfillmentOrder) *Allocator {
	a := &Allocator{byLineItem: make(map[string][]*allocCandidate)}
	for _, fo := range fulfillmentOrders {
		for _, li := range fo.LineItems {
			if li.RemainingQuantity <= 0 {
				continue
			}
			c := &allocCandidate{
				fulfillmentOrderID: fo.ID,
				lineID:             li.ID,
				remaining:          li.RemainingQuantity,
			}
			a.byLineItem[li.LineItemID] = append(a.byLineItem[li.LineItemID], c)
		}
	}
	return a
}

// Allocate consumes remaining quantity for each requested line in candidate
// listing order, grouping consumed quantities by fulfillment order. The
// unsatisfiable remainder is reported, not raised; the caller proceeds with
// a partial fulfillment covering what was allocated.
func (a *Allocator) Allocate(requests []PlanLine) (selections []order.FulfillmentLineSelection, remainder []PlanLine) {
	consumed := make(map[string]map[string]int) // fulfillment order id -> line id -> quantity
	var foOrder []string

	for _, req := range requests {
		want := req.Quantity
		for _, c := range a.byLineItem[req.LineItemID] {
			if want == 0 {
				break
			}
			if c.remaining == 0 {
				continue
			}
			take := want
			if take > c.remaining {
				take = c.remaining
			}
			c.remaining -= take
			want -= take

			if _, ok := consumed[c.fulfillmentOrderID]; !ok {
				consumed[c.fulfillmentOrderID] = make(map[string]int)
				foOrder = append(foOrder, c.fulfillmentOrderID)
			}
			consumed[c.fulfillmentOrderID][c.lineID] += take
		}
		if want > 0 {
			remainder = append(remainder, PlanLine{LineItemID: req.LineItemID, Quantity: want})
		}
	}

	for _, foID := range foOrder {
		selections = append(selections, order.FulfillmentLineSelection{
			FulfillmentOrderID: foID,
			Lines:              consumed[foID],
		})
	}
	return selections, remainder
}

// Remaining reports the quantity still available for a source line item.
func (a *Allocator) Remaining(lineItemID string) int {
	total := 0
	for _, c := range a.byLineItem[lineItemID] {
		total += c.remaining
	}
	return total
}
