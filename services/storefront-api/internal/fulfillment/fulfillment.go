package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"credential-storefront/services/storefront-api/internal/cart"
	"credential-storefront/services/storefront-api/internal/inventory"
	"credential-storefront/services/storefront-api/internal/ledger"
	"credential-storefront/services/storefront-api/internal/metrics"
	"credential-storefront/services/storefront-api/internal/notify"
)

var (
	ErrInvalidRequest = errors.New("fulfillment: invalid request")
	ErrLedgerWrite    = errors.New("fulfillment: order could not be recorded")
)

// LedgerWriteError means units were claimed but the order was not recorded.
// Stranded lists those unit ids: they are sold to nobody the buyer can see.
type LedgerWriteError struct {
	OrderID  string
	Stranded []string
	Err      error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("fulfillment: order %s not recorded, %d units stranded: %v", e.OrderID, len(e.Stranded), e.Err)
}

func (e *LedgerWriteError) Unwrap() []error { return []error{ErrLedgerWrite, e.Err} }

type Request struct {
	OrderID    string
	BuyerEmail string
	Lines      []cart.Line
	Total      decimal.Decimal
}

func (r Request) validate() error {
	if strings.TrimSpace(r.BuyerEmail) == "" || r.OrderID == "" {
		return fmt.Errorf("%w: buyer email and order id are required", ErrInvalidRequest)
	}
	if len(r.Lines) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidRequest)
	}
	for _, l := range r.Lines {
		if l.Quantity < 1 {
			return fmt.Errorf("%w: quantity for %s must be at least 1", ErrInvalidRequest, l.ProductID)
		}
	}
	return nil
}

type Result struct {
	Success     bool
	Credentials []string
	Order       ledger.Order
}

// Service turns a cart into a recorded order with delivered credentials.
//
// By default lines are claimed one at a time and a shortage on a later line
// leaves earlier lines claimed with no order recorded. AllOrNothing claims
// every line in one storage transaction instead.
type Service struct {
	Inventory inventory.Store
	Ledger    ledger.Ledger
	Notifier  notify.Dispatcher
	Log       zerolog.Logger

	AllOrNothing  bool
	PublicURL     string
	NotifyTimeout time.Duration
	Now           func() time.Time

	wg sync.WaitGroup
}

var tracer = otel.Tracer("storefront.fulfillment")

// Fulfill claims units for every line, records the order and schedules the
// delivery notification. It is not idempotent: calling it twice with the
// same order id claims units twice and the second ledger append fails.
func (s *Service) Fulfill(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "fulfillment.Fulfill", trace.WithAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.Int("order.lines", len(req.Lines)),
	))
	defer span.End()

	start := time.Now()
	res, err := s.fulfill(ctx, req)
	metrics.FulfillmentDuration.Observe(time.Since(start).Seconds())
	metrics.FulfillmentsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return nil, err
	}
	span.SetStatus(codes.Ok, "fulfilled")
	return res, nil
}

func (s *Service) fulfill(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	log := s.Log.With().Str("order_id", req.OrderID).Str("email", req.BuyerEmail).Logger()

	claims := make([]inventory.ClaimRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		claims = append(claims, inventory.ClaimRequest{
			Type:       l.Type,
			Quantity:   l.Quantity,
			BuyerEmail: req.BuyerEmail,
			OrderID:    req.OrderID,
		})
	}

	units, err := s.claim(ctx, claims)
	if err != nil {
		if ids := inventory.IDs(units); len(ids) > 0 {
			log.Warn().Err(err).Strs("claimed", ids).Msg("claim aborted after earlier lines were claimed")
		} else {
			log.Info().Err(err).Msg("claim refused")
		}
		return nil, err
	}

	order := ledger.Order{
		ID:          req.OrderID,
		BuyerEmail:  req.BuyerEmail,
		CreatedAt:   s.now().UTC(),
		Items:       items(req.Lines),
		Total:       req.Total,
		Status:      ledger.StatusCompleted,
		Credentials: inventory.Contents(units),
	}

	if err := s.Ledger.Append(ctx, order); err != nil {
		stranded := inventory.IDs(units)
		metrics.StrandedUnitsTotal.Add(float64(len(stranded)))
		log.Error().Err(err).Strs("stranded_units", stranded).Msg("order not recorded after units were claimed")
		return nil, &LedgerWriteError{OrderID: req.OrderID, Stranded: stranded, Err: err}
	}
	log.Info().Int("units", len(units)).Str("total", order.Total.StringFixed(2)).Msg("order fulfilled")

	s.dispatch(order)

	return &Result{Success: true, Credentials: order.Credentials, Order: order}, nil
}

// claim returns the units claimed so far even on error, in line order.
func (s *Service) claim(ctx context.Context, reqs []inventory.ClaimRequest) ([]inventory.Unit, error) {
	if s.AllOrNothing {
		per, err := s.Inventory.ClaimAll(ctx, reqs)
		if err != nil {
			for _, r := range reqs {
				metrics.ClaimsTotal.WithLabelValues(string(r.Type), claimOutcome(err)).Inc()
			}
			return nil, err
		}
		var all []inventory.Unit
		for i, units := range per {
			metrics.ClaimsTotal.WithLabelValues(string(reqs[i].Type), "claimed").Inc()
			all = append(all, units...)
		}
		return all, nil
	}

	var all []inventory.Unit
	for _, r := range reqs {
		units, err := s.Inventory.Claim(ctx, r)
		metrics.ClaimsTotal.WithLabelValues(string(r.Type), claimOutcome(err)).Inc()
		if err != nil {
			return all, err
		}
		all = append(all, units...)
	}
	return all, nil
}

// dispatch sends the notification in the background with its own deadline;
// the request may already be gone by the time it runs.
func (s *Service) dispatch(order ledger.Order) {
	if s.Notifier == nil {
		return
	}
	n := notify.Build(order, s.PublicURL)
	timeout := s.NotifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Notifier.Dispatch(ctx, n); err != nil {
			metrics.NotificationsFailedTotal.Inc()
			s.Log.Error().Err(err).Str("order_id", n.OrderID).Str("email", n.BuyerEmail).Msg("delivery notification failed")
		}
	}()
}

// Wait blocks until every notification scheduled so far has finished.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func items(lines []cart.Line) []ledger.Item {
	out := make([]ledger.Item, 0, len(lines))
	for _, l := range lines {
		out = append(out, ledger.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Type:      l.Type,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return out
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return "claimed"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient"
	case errors.Is(err, inventory.ErrClaimConflict):
		return "conflict"
	}
	return "error"
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "fulfilled"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrLedgerWrite):
		return "ledger_failed"
	}
	return "error"
}

// NewOrderID builds the human-facing order reference "PED-" followed by the
// last six digits of the millisecond clock and nine random digits.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("PED-%06d%09d", now.UnixMilli()%1_000_000, rand.IntN(1_000_000_000))
}
