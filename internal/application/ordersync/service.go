package ordersync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marketship/backend/internal/domain/order"
	"github.com/marketship/backend/internal/domain/shared"
	"github.com/marketship/backend/internal/domain/shipping"
)

// SyncOptions controls one sync run.
type SyncOptions struct {
	AutoFulfill    bool
	NotifyCustomer bool
	Force          bool
	Override       *ManualOverride
}

// Service drives the order state machine: not-synced → processing →
// completed or partial_failed.
type Service struct {
	storefront order.Storefront
	provider   shipping.RateProvider
	planner    *Planner
	records    order.SyncStore
	logger     *zap.Logger
	now        func() time.Time
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates the sync orchestrator.
func NewService(storefront order.Storefront, provider shipping.RateProvider, planner *Planner,
	records order.SyncStore, opts ...Option) *Service {
	s := &Service{
		storefront: storefront,
		provider:   provider,
		planner:    planner,
		records:    records,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncOrder books courier shipments for every seller group of an order.
//
// A completed record short-circuits unless force is set. The record is
// persisted before the first booking and again after every group, so a
// crash mid-run leaves a consistent, resumable state. One group's failure
// is recorded and does not halt its siblings.
//
// Two concurrent syncs of the same order can both pass the completed check
// before either writes; callers needing strict once-only behavior must
// serialize externally.
func (s *Service) SyncOrder(ctx context.Context, orderID string, opts SyncOptions) (*order.SyncRecord, error) {
	existing, err := s.records.Get(ctx, orderID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load sync record for order %s: %w", orderID, err)
	}
	if existing != nil && existing.Status == order.SyncStatusCompleted && !opts.Force {
		s.logger.Info("order already completed, skipping", zap.String("order_id", orderID))
		return existing, nil
	}

	o, err := s.storefront.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order %s: %w", orderID, err)
	}

	plan, err := s.planner.BuildPlan(ctx, o, opts.Override)
	if err != nil {
		return nil, fmt.Errorf("build plan for order %s: %w", orderID, err)
	}

	record := &order.SyncRecord{
		OrderID:          orderID,
		Status:           order.SyncStatusProcessing,
		SkippedItems:     plan.Skipped,
		SelectedShipping: plan.SelectedShipping,
	}
	if existing != nil {
		record.Shipments = existing.Shipments
	}
	if err := s.persist(ctx, record); err != nil {
		return nil, err
	}

	var allocator *Allocator
	if opts.AutoFulfill {
		fos, err := s.storefront.GetFulfillmentOrders(ctx, orderID)
		if err != nil {
			s.logger.Warn("fulfillment orders unavailable, bookings proceed without fulfillment",
				zap.String("order_id", orderID), zap.Error(err))
		} else {
			allocator = NewAllocator(fos)
		}
	}

	failures := 0
	for i := range plan.Groups {
		group := &plan.Groups[i]

		if prior := record.ShipmentFor(group.SellerID); prior != nil &&
			prior.Status == order.ShipmentStatusCreated && !opts.Force {
			s.logger.Info("shipment already created, keeping",
				zap.String("order_id", orderID), zap.String("seller_id", group.SellerID))
			continue
		}

		shipment := s.processGroup(ctx, o, plan, group, allocator, opts)
		if shipment.Status == order.ShipmentStatusFailed {
			failures++
			record.LastError = shipment.Error
		}
		record.SetShipment(shipment)
		if err := s.persist(ctx, record); err != nil {
			return nil, err
		}
	}

	if failures == 0 {
		record.Status = order.SyncStatusCompleted
	} else {
		record.Status = order.SyncStatusPartialFailed
	}
	if err := s.persist(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("order sync finished",
		zap.String("order_id", orderID),
		zap.String("status", string(record.Status)),
		zap.Int("groups", len(plan.Groups)),
		zap.Int("failures", failures))
	return record, nil
}

// processGroup books one seller group and optionally requests a partial
// fulfillment. Every failure path returns a failed shipment; nothing
// escalates past the group.
func (s *Service) processGroup(ctx context.Context, o *order.Order, plan *Plan, group *GroupPlan,
	allocator *Allocator, opts SyncOptions) order.Shipment {
	shipment := order.Shipment{
		SellerID:       group.SellerID,
		CourierCompany: group.CourierCompany,
		CourierType:    group.CourierType,
	}
	fail := func(err error) order.Shipment {
		s.logger.Warn("seller group booking failed",
			zap.String("order_id", o.ID),
			zap.String("seller_id", group.SellerID),
			zap.Error(err))
		shipment.Status = order.ShipmentStatusFailed
		shipment.Error = err.Error()
		return shipment
	}

	if group.RequoteErr != nil {
		return fail(group.RequoteErr)
	}

	req := &shipping.BookingRequest{
		OrderRef:       o.Name,
		CourierCompany: group.CourierCompany,
		CourierType:    group.CourierType,
		Shipper: shipping.Party{
			Name:       group.ContactName,
			Phone:      group.ContactPhone,
			Email:      group.ContactEmail,
			Address:    group.Origin.Address,
			City:       group.Origin.City,
			Province:   group.Origin.State,
			PostalCode: group.Origin.PostalCode,
			Latitude:   group.Origin.Latitude,
			Longitude:  group.Origin.Longitude,
		},
		Destination: plan.Destination,
		Items:       group.Items,
		Note:        fmt.Sprintf("Order %s, seller %s", o.Name, group.SellerID),
	}
	if req.OrderRef == "" {
		req.OrderRef = o.ID
	}
	if err := req.Validate(); err != nil {
		return fail(err)
	}

	booking, err := s.provider.CreateBooking(ctx, req)
	if err != nil {
		return fail(err)
	}

	shipment.Status = order.ShipmentStatusCreated
	shipment.BookingID = booking.ID
	shipment.TrackingNumber = booking.TrackingNumber

	if allocator != nil {
		s.fulfill(ctx, o, group, allocator, &shipment, opts.NotifyCustomer)
	}
	return shipment
}

// fulfill allocates the group's lines and requests a partial fulfillment.
// Fulfillment problems never fail a created shipment; the booking stands
// and the gap is logged for manual follow-up.
func (s *Service) fulfill(ctx context.Context, o *order.Order, group *GroupPlan,
	allocator *Allocator, shipment *order.Shipment, notify bool) {
	selections, remainder := allocator.Allocate(group.Lines)
	if len(remainder) > 0 {
		s.logger.Warn("fulfillment allocation left a remainder",
			zap.String("order_id", o.ID),
			zap.String("seller_id", group.SellerID),
			zap.Int("unallocated_lines", len(remainder)))
	}
	if len(selections) == 0 {
		return
	}

	fulfillment, err := s.storefront.CreateFulfillment(ctx, &order.FulfillmentRequest{
		OrderID:         o.ID,
		TrackingNumber:  shipment.TrackingNumber,
		TrackingCompany: shipment.CourierCompany,
		NotifyCustomer:  notify,
		Selections:      selections,
	})
	if err != nil {
		s.logger.Warn("fulfillment creation failed, booking kept",
			zap.String("order_id", o.ID),
			zap.String("seller_id", group.SellerID),
			zap.Error(err))
		return
	}
	shipment.FulfillmentID = fulfillment.ID
}

// ListPendingOrders lists paid, unfulfilled storefront orders that have no
// completed sync record yet.
func (s *Service) ListPendingOrders(ctx context.Context, limit int) ([]order.Summary, error) {
	summaries, err := s.storefront.ListOpenOrders(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}

	pending := make([]order.Summary, 0, len(summaries))
	for _, summary := range summaries {
		record, err := s.records.Get(ctx, summary.ID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("check sync record for order %s: %w", summary.ID, err)
			}
			pending = append(pending, summary)
			continue
		}
		if record.Status != order.SyncStatusCompleted {
			pending = append(pending, summary)
		}
	}
	return pending, nil
}

// GetRecord returns the sync record for one order.
func (s *Service) GetRecord(ctx context.Context, orderID string) (*order.SyncRecord, error) {
	return s.records.Get(ctx, orderID)
}

func (s *Service) persist(ctx context.Context, record *order.SyncRecord) error {
	record.UpdatedAt = s.now()
	if err := s.records.Upsert(ctx, record); err != nil {
		return fmt.Errorf("persist sync record for order %s: %w", record.OrderID, err)
	}
	return nil
}
