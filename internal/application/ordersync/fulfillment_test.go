package ordersync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketship/backend/internal/domain/order"
)

func TestAllocator_PartialConsumptionLeavesRemaining(t *testing.T) {
	a := NewAllocator([]order.FulfillmentOrder{
		{ID: "fo-1", LineItems: []order.FulfillmentOrderLineItem{
			{ID: "81", LineItemID: "11", RemainingQuantity: 2},
		}},
	})

	selections, remainder := a.Allocate([]PlanLine{{LineItemID: "11", Quantity: 1}})

	require.Len(t, selections, 1)
	assert.Equal(t, "fo-1", selections[0].FulfillmentOrderID)
	assert.Equal(t, map[string]int{"81": 1}, selections[0].Lines)
	assert.Empty(t, remainder)
	assert.Equal(t, 1, a.Remaining("11"))
}

func TestAllocator_SpansCandidatesInListingOrder(t *testing.T) {
	a := NewAllocator([]order.FulfillmentOrder{
		{ID: "fo-1", LineItems: []order.FulfillmentOrderLineItem{
			{ID: "81", LineItemID: "11", RemainingQuantity: 1},
		}},
		{ID: "fo-2", LineItems: []order.FulfillmentOrderLineItem{
			{ID: "91", LineItemID: "11", RemainingQuantity: 3},
		}},
	})

	selections, remainder := a.Allocate([]PlanLine{{LineItemID: "11", Quantity: 3}})

	require.Len(t, selections, 2)
	assert.Equal(t, map[string]int{"81": 1}, selections[0].Lines)
	assert.Equal(t, map[string]int{"91": 2}, selections[1].Lines)
	assert.Empty(t, remainder)
	assert.Equal(t, 1, a.Remaining("11"))
}

func TestAllocator_UnsatisfiableRemainderIsReportedNotRaised(t *testing.T) {
	a := NewAllocator([]order.FulfillmentOrder{
		{ID: "fo-1", LineItems: []order.FulfillmentOrderLineItem{
			{ID: "81", LineItemID: "11", RemainingQuantity: 1},
		}},
	})

	selections, remainder := a.Allocate([]PlanLine{
		{LineItemID: "11", Quantity: 3},
		{LineItemID: "12", Quantity: 1}, // no candidates at all
	})

	require.Len(t, selections, 1)
	assert.Equal(t, map[string]int{"81": 1}, selections[0].Lines)
	require.Len(t, remainder, 2)
	assert.Equal(t, PlanLine{LineItemID: "11", Quantity: 2}, remainder[0])
	assert.Equal(t, PlanLine{LineItemID: "12", Quantity: 1}, remainder[1])
}

func TestAllocator_SharedAcrossGroups(t *testing.T) {
	a := NewAllocator([]order.FulfillmentOrder{
		{ID: "fo-1", LineItems: []order.FulfillmentOrderLineItem{
			{ID: "81", LineItemID: "11", RemainingQuantity: 2},
		}},
	})

	first, _ := a.Allocate([]PlanLine{{LineItemID: "11", Quantity: 2}})
	require.Len(t, first, 1)

	second, remainder := a.Allocate([]PlanLine{{LineItemID: "11", Quantity: 1}})
	assert.Empty(t, second, "quantities consumed by an earlier group are gone")
	require.Len(t, remainder, 1)
	assert.Equal(t, 1, remainder[0].Quantity)
}
