package storefront

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/marketship/backend/internal/domain/order"
)

// wireAddress is the admin API address shape.
type wireAddress struct {
	Name      string   `json:"name"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Phone     string   `json:"phone"`
	Address1  string   `json:"address1"`
	Address2  string   `json:"address2"`
	City      string   `json:"city"`
	Province  string   `json:"province"`
	Country   string   `json:"country_code"`
	Zip       string   `json:"zip"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (a *wireAddress) toDomain() *order.Address {
	if a == nil {
		return nil
	}
	name := a.Name
	if name == "" {
		name = trimJoin(a.FirstName, a.LastName)
	}
	return &order.Address{
		Name:       name,
		Phone:      a.Phone,
		Address1:   a.Address1,
		Address2:   a.Address2,
		City:       a.City,
		Province:   a.Province,
		Country:    a.Country,
		PostalCode: a.Zip,
		Latitude:   a.Latitude,
		Longitude:  a.Longitude,
	}
}

// wireCustomer is the admin API customer shape.
type wireCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (c *wireCustomer) toDomain() *order.Customer {
	if c == nil {
		return nil
	}
	return &order.Customer{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
		Email:     c.Email,
	}
}

// wireLineItem is one purchasable line on the wire. Numeric ids are
// normalized to strings at this boundary.
type wireLineItem struct {
	ID                  int64  `json:"id"`
	VariantID           int64  `json:"variant_id"`
	ProductID           int64  `json:"product_id"`
	Title               string `json:"title"`
	Quantity            int    `json:"quantity"`
	FulfillableQuantity int    `json:"fulfillable_quantity"`
	RequiresShipping    bool   `json:"requires_shipping"`
	Grams               int    `json:"grams"`
	Price               string `json:"price"`
}

// wireShippingLine is the checkout's selected shipping method.
type wireShippingLine struct {
	Title string `json:"title"`
	Code  string `json:"code"`
	Price string `json:"price"`
}

// wireOrder is the admin API order shape.
type wireOrder struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	Currency          string             `json:"currency"`
	SubtotalPrice     string             `json:"subtotal_price"`
	Email             string             `json:"email"`
	FinancialStatus   string             `json:"financial_status"`
	FulfillmentStatus string             `json:"fulfillment_status"`
	ShippingAddress   *wireAddress       `json:"shipping_address"`
	BillingAddress    *wireAddress       `json:"billing_address"`
	Customer          *wireCustomer      `json:"customer"`
	ShippingLines     []wireShippingLine `json:"shipping_lines"`
	LineItems         []wireLineItem     `json:"line_items"`
}

// toDomain converts the wire order into the domain order.
func (o *wireOrder) toDomain() *order.Order {
	result := &order.Order{
		ID:                formatID(o.ID),
		Name:              o.Name,
		Currency:          o.Currency,
		Subtotal:          parsePrice(o.SubtotalPrice),
		Email:             o.Email,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		ShippingAddress:   o.ShippingAddress.toDomain(),
		BillingAddress:    o.BillingAddress.toDomain(),
		Customer:          o.Customer.toDomain(),
	}
	for _, sl := range o.ShippingLines {
		result.ShippingLines = append(result.ShippingLines, order.ShippingLine{
			Title: sl.Title,
			Code:  sl.Code,
			Price: parsePrice(sl.Price),
		})
	}
	for _, li := range o.LineItems {
		result.LineItems = append(result.LineItems, order.LineItem{
			ID:                  formatID(li.ID),
			VariantID:           formatID(li.VariantID),
			ProductID:           formatID(li.ProductID),
			Title:               li.Title,
			Quantity:            li.Quantity,
			FulfillableQuantity: li.FulfillableQuantity,
			RequiresShipping:    li.RequiresShipping,
			WeightGrams:         li.Grams,
			Price:               parsePrice(li.Price),
		})
	}
	return result
}

func (o *wireOrder) toSummary() order.Summary {
	return order.Summary{
		ID:                formatID(o.ID),
		Name:              o.Name,
		Subtotal:          parsePrice(o.SubtotalPrice),
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		ItemCount:         len(o.LineItems),
	}
}

// wireFulfillmentOrder is one fulfillment order on the wire.
type wireFulfillmentOrder struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	LineItems []struct {
		ID                  int64 `json:"id"`
		LineItemID          int64 `json:"line_item_id"`
		FulfillableQuantity int   `json:"fulfillable_quantity"`
	} `json:"line_items"`
}

func (fo *wireFulfillmentOrder) toDomain() order.FulfillmentOrder {
	result := order.FulfillmentOrder{
		ID:     formatID(fo.ID),
		Status: fo.Status,
	}
	for _, li := range fo.LineItems {
		result.LineItems = append(result.LineItems, order.FulfillmentOrderLineItem{
			ID:                formatID(li.ID),
			LineItemID:        formatID(li.LineItemID),
			RemainingQuantity: li.FulfillableQuantity,
		})
	}
	return result
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func parsePrice(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func trimJoin(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
