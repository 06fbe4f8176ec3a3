package order

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Address is a storefront order address.
type Address struct {
	Name       string
	Phone      string
	Address1   string
	Address2   string
	City       string
	Province   string
	Country    string
	PostalCode string
	Latitude   *float64
	Longitude  *float64
}

// Customer is the order's customer identity, used as a fallback source for
// destination phone and email.
type Customer struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

// FullName joins the customer's name parts.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ShippingLine is the shipping method the buyer selected at checkout.
// Code carries the checkout-safe service token when the rate came from the
// quote engine.
type ShippingLine struct {
	Title string
	Code  string
	Price decimal.Decimal
}

// LineItem is one purchasable line on an order.
type LineItem struct {
	ID                  string
	VariantID           string
	ProductID           string
	Title               string
	Quantity            int
	FulfillableQuantity int
	RequiresShipping    bool
	WeightGrams         int
	Price               decimal.Decimal
}

// Order is a placed storefront order as seen by the sync engine.
type Order struct {
	ID                string
	Name              string
	Currency          string
	Subtotal          decimal.Decimal
	Email             string
	FinancialStatus   string
	FulfillmentStatus string
	ShippingAddress   *Address
	BillingAddress    *Address
	Customer          *Customer
	ShippingLines     []ShippingLine
	LineItems         []LineItem
}

// Summary is the compact listing row for pending orders.
type Summary struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	ItemCount         int             `json:"item_count"`
}

// FulfillmentOrderLineItem is one fulfillable line within a fulfillment
// order, keyed back to the source order line item.
type FulfillmentOrderLineItem struct {
	ID                string
	LineItemID        string
	RemainingQuantity int
}

// FulfillmentOrder groups the line items a single location can fulfill.
type FulfillmentOrder struct {
	ID        string
	Status    string
	LineItems []FulfillmentOrderLineItem
}

// FulfillmentLineSelection picks quantities from one fulfillment order when
// creating a (possibly partial) fulfillment.
type FulfillmentLineSelection struct {
	FulfillmentOrderID string
	Lines              map[string]int // fulfillment-order line item id -> quantity
}

// FulfillmentRequest creates a fulfillment against specific
// fulfillment-order line items.
type FulfillmentRequest struct {
	OrderID         string
	TrackingNumber  string
	TrackingCompany string
	NotifyCustomer  bool
	Selections      []FulfillmentLineSelection
}

// Fulfillment is the storefront's confirmation of a created fulfillment.
type Fulfillment struct {
	ID     string
	Status string
}

// Storefront is the storefront admin provider port.
type Storefront interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListOpenOrders(ctx context.Context, limit int) ([]Summary, error)
	GetFulfillmentOrders(ctx context.Context, orderID string) ([]FulfillmentOrder, error)
	CreateFulfillment(ctx context.Context, req *FulfillmentRequest) (*Fulfillment, error)
}
