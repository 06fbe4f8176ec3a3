package ordersync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/marketship/backend/internal/domain/order"
	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shipping"
)

// SellerResolver resolves order variants to sellers and sellers to
// shipping origins.
type SellerResolver interface {
	ResolveVariant(ctx context.Context, variantID string) (*seller.VariantMapping, error)
	ResolveOrigin(ctx context.Context, sellerID string) (*seller.SellerOrigin, error)
}

// ManualOverride pins every seller group to one courier company and
// service, bypassing the order's shipping line.
type ManualOverride struct {
	CourierCompany string `json:"courier_company" binding:"required"`
	CourierType    string `json:"courier_type" binding:"required"`
}

// PlanLine ties cargo back to the source order line item, for fulfillment
// allocation after booking.
type PlanLine struct {
	LineItemID string
	Quantity   int
}

// GroupPlan is the booking plan for one seller group: origin, contact
// identity, selected courier and itemized cargo.
type GroupPlan struct {
	SellerID       string
	Origin         *seller.SellerOrigin
	ContactName    string
	ContactPhone   string
	ContactEmail   string
	CourierCompany string
	CourierType    string
	Items          []shipping.CargoItem
	Lines          []PlanLine

	// RequoteErr is set when courier selection required a live requote and
	// that requote failed. The group cannot be booked.
	RequoteErr error
}

// Plan is the full booking plan for one order.
type Plan struct {
	Order            *order.Order
	Destination      shipping.Party
	Groups           []GroupPlan
	Skipped          []order.SkippedItem
	SelectedShipping string
}

// Planner builds booking plans from placed orders.
type Planner struct {
	resolver  SellerResolver
	directory seller.Directory
	provider  shipping.RateProvider
	couriers  []string
	logger    *zap.Logger
}

// PlannerOption is a functional option for Planner configuration
type PlannerOption func(*Planner)

// WithPlannerLogger sets the logger.
func WithPlannerLogger(logger *zap.Logger) PlannerOption {
	return func(p *Planner) { p.logger = logger }
}

// NewPlanner creates a plan builder. The rate provider is only consulted
// when a group needs a live cheapest-requote.
func NewPlanner(res SellerResolver, directory seller.Directory, provider shipping.RateProvider,
	couriers []string, opts ...PlannerOption) *Planner {
	p := &Planner{
		resolver:  res,
		directory: directory,
		provider:  provider,
		couriers:  couriers,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BuildPlan groups the order's fulfillable, shippable line items by seller
// and selects a courier per group.
//
// Courier precedence: an explicit manual override, then the parsed service
// token from the order's shipping line, then a live cheapest-requote per
// group. The mixed token always requotes per group.
func (p *Planner) BuildPlan(ctx context.Context, o *order.Order, override *ManualOverride) (*Plan, error) {
	dest, err := destinationParty(o)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Order: o, Destination: dest}
	p.buildGroups(ctx, o, plan)
	if len(plan.Groups) == 0 {
		return nil, fmt.Errorf("%w: order %s", shipping.ErrNoSellerGroups, o.ID)
	}

	p.selectCouriers(ctx, o, plan, override)

	for i := range plan.Groups {
		p.resolveContact(ctx, &plan.Groups[i])
	}
	return plan, nil
}

// destinationParty extracts the receiver from the shipping address, falling
// back through customer and billing fields for phone and email.
func destinationParty(o *order.Order) (shipping.Party, error) {
	addr := o.ShippingAddress
	if addr == nil || addr.Address1 == "" {
		return shipping.Party{}, fmt.Errorf("%w: order %s has no shipping address",
			shipping.ErrNoDestination, o.ID)
	}

	party := shipping.Party{
		Name:       addr.Name,
		Phone:      addr.Phone,
		Email:      o.Email,
		Address:    addr.Address1,
		City:       addr.City,
		Province:   addr.Province,
		PostalCode: addr.PostalCode,
		Latitude:   addr.Latitude,
		Longitude:  addr.Longitude,
	}
	if addr.Address2 != "" {
		party.Address += ", " + addr.Address2
	}
	if party.Name == "" && o.Customer != nil {
		party.Name = o.Customer.FullName()
	}
	if party.Phone == "" && o.Customer != nil {
		party.Phone = o.Customer.Phone
	}
	if party.Phone == "" && o.BillingAddress != nil {
		party.Phone = o.BillingAddress.Phone
	}
	if party.Email == "" && o.Customer != nil {
		party.Email = o.Customer.Email
	}
	return party, nil
}

// buildGroups filters to shippable items with positive fulfillable quantity
// and groups them by resolved seller. Unresolvable items are skipped.
func (p *Planner) buildGroups(ctx context.Context, o *order.Order, plan *Plan) {
	groupIndex := make(map[string]int)
	for _, li := range o.LineItems {
		if !li.RequiresShipping || li.FulfillableQuantity <= 0 {
			continue
		}

		mapping, err := p.resolver.ResolveVariant(ctx, li.VariantID)
		if err != nil {
			plan.Skipped = append(plan.Skipped, order.SkippedItem{
				VariantID: li.VariantID,
				Reason:    fmt.Sprintf("variant resolution failed: %v", err),
			})
			continue
		}

		idx, ok := groupIndex[mapping.SellerID]
		if !ok {
			origin, err := p.resolver.ResolveOrigin(ctx, mapping.SellerID)
			if err != nil {
				plan.Skipped = append(plan.Skipped, order.SkippedItem{
					VariantID: li.VariantID,
					Reason:    fmt.Sprintf("origin resolution failed: %v", err),
				})
				continue
			}
			plan.Groups = append(plan.Groups, GroupPlan{SellerID: mapping.SellerID, Origin: origin})
			idx = len(plan.Groups) - 1
			groupIndex[mapping.SellerID] = idx
		}

		weight := li.WeightGrams
		if weight == 0 {
			weight = mapping.WeightGrams
		}
		plan.Groups[idx].Items = append(plan.Groups[idx].Items, shipping.CargoItem{
			Name:        li.Title,
			Quantity:    li.FulfillableQuantity,
			WeightGrams: weight,
			Value:       li.Price,
		})
		plan.Groups[idx].Lines = append(plan.Groups[idx].Lines, PlanLine{
			LineItemID: li.ID,
			Quantity:   li.FulfillableQuantity,
		})
	}
}

// selectCouriers applies the shipping-method precedence to every group.
func (p *Planner) selectCouriers(ctx context.Context, o *order.Order, plan *Plan, override *ManualOverride) {
	if override != nil {
		plan.SelectedShipping = shipping.ServiceToken(override.CourierCompany, override.CourierType)
		for i := range plan.Groups {
			plan.Groups[i].CourierCompany = override.CourierCompany
			plan.Groups[i].CourierType = override.CourierType
		}
		return
	}

	if len(o.ShippingLines) > 0 && o.ShippingLines[0].Code != "" {
		token := o.ShippingLines[0].Code
		courier, service, mixed, err := shipping.ParseServiceToken(token)
		switch {
		case err != nil:
			p.logger.Warn("unparseable shipping line code, requoting per group",
				zap.String("order_id", o.ID), zap.String("code", token))
		case mixed:
			plan.SelectedShipping = token
			p.requoteGroups(ctx, plan)
			return
		default:
			plan.SelectedShipping = token
			for i := range plan.Groups {
				plan.Groups[i].CourierCompany = courier
				plan.Groups[i].CourierType = service
			}
			return
		}
	}

	p.requoteGroups(ctx, plan)
}

// requoteGroups picks the cheapest live rate per group.
func (p *Planner) requoteGroups(ctx context.Context, plan *Plan) {
	for i := range plan.Groups {
		group := &plan.Groups[i]
		quotes, err := p.provider.Rates(ctx, &shipping.RateRequest{
			OriginPostalCode: group.Origin.PostalCode,
			OriginLatitude:   group.Origin.Latitude,
			OriginLongitude:  group.Origin.Longitude,
			DestPostalCode:   plan.Destination.PostalCode,
			DestLatitude:     plan.Destination.Latitude,
			DestLongitude:    plan.Destination.Longitude,
			Items:            group.Items,
			Couriers:         p.couriers,
		})
		if err != nil {
			group.RequoteErr = fmt.Errorf("requote failed: %w", err)
			continue
		}
		if len(quotes) == 0 {
			group.RequoteErr = fmt.Errorf("%w: seller %s", shipping.ErrNoRates, group.SellerID)
			continue
		}

		cheapest := quotes[0]
		for _, q := range quotes[1:] {
			if q.Price.LessThan(cheapest.Price) {
				cheapest = q
			}
		}
		group.CourierCompany = cheapest.CourierCode
		group.CourierType = cheapest.ServiceCode
	}
}

// resolveContact fills the seller contact identity, preferring explicit
// origin fields and falling back to the live seller record.
func (p *Planner) resolveContact(ctx context.Context, group *GroupPlan) {
	group.ContactName = group.Origin.ContactName
	group.ContactPhone = group.Origin.ContactPhone
	group.ContactEmail = group.Origin.ContactEmail
	if group.ContactName != "" && group.ContactPhone != "" {
		return
	}

	s, err := p.directory.GetSeller(ctx, group.SellerID)
	if err != nil {
		p.logger.Warn("seller contact lookup failed",
			zap.String("seller_id", group.SellerID), zap.Error(err))
		return
	}
	if group.ContactName == "" {
		group.ContactName = s.Name
	}
	if group.ContactPhone == "" {
		group.ContactPhone = s.Phone
	}
	if group.ContactEmail == "" {
		group.ContactEmail = s.Email
	}
}
