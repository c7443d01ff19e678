package purchase

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/promo-pricing/internal/domain/currency"
	"github.com/xenking/promo-pricing/internal/domain/product"
	"github.com/xenking/promo-pricing/internal/domain/promo"
)

const instrumentationName = "github.com/xenking/promo-pricing/internal/domain/purchase"

// Request holds the input for creating a purchase.
type Request struct {
	ProductID int64
	PromoCode string
}

// Result holds a committed purchase with the product it was made for.
type Result struct {
	Purchase *Purchase
	Product  *product.Product
	Outcome  promo.Outcome
}

// Warning returns the degraded-outcome warning, or "".
func (r *Result) Warning() string {
	return r.Purchase.Warning
}

// Quote is a read-only price preview.
type Quote struct {
	Price   currency.Money
	Outcome promo.Outcome
}

// Warning returns the degraded-outcome warning, or "".
func (q *Quote) Warning() string {
	return q.Outcome.Warning()
}

// Option configures a Service.
type Option func(*Service)

// DefaultListenerTimeout bounds each listener call.
const DefaultListenerTimeout = 2 * time.Second

// WithListeners registers listeners notified after each committed purchase.
func WithListeners(ls ...Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, ls...) }
}

// WithListenerTimeout bounds how long a single listener may run. Listeners are
// called before the response is written, so the sum of their timeouts must
// stay below the server's write timeout.
func WithListenerTimeout(d time.Duration) Option {
	return func(s *Service) { s.listenerTimeout = d }
}

// WithMeterProvider sets the meter provider. Defaults to a no-op provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider. Defaults to a no-op provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithClock overrides the clock used to date purchases.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service creates purchases and prices previews.
type Service struct {
	products  ProductReader
	codes     CodeReader
	store     Store
	listeners []Listener
	now       func() time.Time

	listenerTimeout time.Duration

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	redemptions    metric.Int64Counter
}

// NewService creates a purchase Service.
func NewService(products ProductReader, codes CodeReader, store Store, opts ...Option) (*Service, error) {
	s := &Service{
		products:        products,
		codes:           codes,
		store:           store,
		now:             time.Now,
		listenerTimeout: DefaultListenerTimeout,
		meterProvider:   metricnoop.NewMeterProvider(),
		tracerProvider:  tracenoop.NewTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	redemptions, err := s.meterProvider.Meter(instrumentationName).Int64Counter(
		"purchase.redemptions",
		metric.WithDescription("Purchases by promo code outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create redemptions counter")
	}
	s.redemptions = redemptions

	return s, nil
}

// CreatePurchase records a purchase of the product, redeeming the promo code
// when it applies. A missing product or code fails the call. An expired,
// mismatched or exhausted code still records the purchase at the regular
// price with a warning.
func (s *Service) CreatePurchase(ctx context.Context, req Request) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "purchase.Create",
		trace.WithAttributes(attribute.Int64("product.id", req.ProductID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(otelcodes.Error, rerr.Error())
		}
		span.End()
	}()

	if req.ProductID <= 0 {
		return nil, ErrProductRequired
	}

	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "load product")
	}

	var code *promo.PromoCode
	if req.PromoCode != "" {
		code, err = s.codes.FindByCode(ctx, req.PromoCode)
		if err != nil {
			return nil, errors.Wrap(err, "load promo code")
		}
	}

	today := promo.Date(s.now())
	outcome := promo.OutcomeValid
	if code != nil {
		outcome = promo.Evaluate(code, currency.NewMoney(p.Price, p.Currency), today, promo.ModeRedeem)
	}

	var pur *Purchase
	if err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		// outcome is only updated on success; a rolled back attempt leaves it untouched.
		attempt := outcome
		if code != nil && attempt == promo.OutcomeValid {
			ok, err := tx.Redeem(ctx, code.ID)
			if err != nil {
				return errors.Wrap(err, "redeem promo code")
			}
			if !ok {
				attempt = promo.OutcomeUsageExhausted
			}
		}

		candidate := newPurchase(p, code, attempt, today)
		if err := tx.Create(ctx, candidate); err != nil {
			return errors.Wrap(err, "create purchase")
		}
		pur, outcome = candidate, attempt
		return nil
	}); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("purchase.id", pur.ID),
		attribute.String("promo.outcome", outcome.String()),
	)
	if code != nil {
		s.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
	}
	s.notify(ctx, pur)

	return &Result{Purchase: pur, Product: p, Outcome: outcome}, nil
}

func newPurchase(p *product.Product, code *promo.PromoCode, outcome promo.Outcome, today time.Time) *Purchase {
	pur := &Purchase{
		Date:           today,
		RegularPrice:   p.Price,
		DiscountAmount: decimal.Zero,
		Currency:       p.Currency,
		ProductID:      p.ID,
	}
	if code == nil {
		return pur
	}

	id := code.ID
	pur.PromoCodeID = &id
	pur.PromoCode = code.Code
	pur.Method = code.Method
	pur.Warning = outcome.Warning()
	if outcome == promo.OutcomeValid {
		pur.DiscountAmount = code.DiscountAmount(p.Price)
	}
	return pur
}

// notify runs listeners one by one. The purchase is already committed, so a
// client disconnect does not cancel them, but each one gets its own deadline.
func (s *Service) notify(ctx context.Context, p *Purchase) {
	ctx = context.WithoutCancel(ctx)
	for _, l := range s.listeners {
		if err := s.callListener(ctx, l, p); err != nil {
			zctx.From(ctx).Warn("Purchase listener failed",
				zap.Int64("purchase_id", p.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) callListener(ctx context.Context, l Listener, p *Purchase) error {
	if s.listenerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.listenerTimeout)
		defer cancel()
	}
	return l.PurchaseCreated(ctx, p)
}

// GetDiscountPrice previews the price of the product with the promo code
// applied. It checks expiry and currency only and changes nothing. A
// degraded code yields the regular price.
func (s *Service) GetDiscountPrice(ctx context.Context, productID int64, code string) (_ *Quote, rerr error) {
	ctx, span := s.tracer.Start(ctx, "purchase.GetDiscountPrice",
		trace.WithAttributes(attribute.Int64("product.id", productID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(otelcodes.Error, rerr.Error())
		}
		span.End()
	}()

	if productID <= 0 {
		return nil, ErrProductRequired
	}
	if code == "" {
		return nil, ErrCodeRequired
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "load product")
	}
	c, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "load promo code")
	}

	regular := currency.NewMoney(p.Price, p.Currency)
	outcome := promo.Evaluate(c, regular, s.now(), promo.ModePreview)
	span.SetAttributes(attribute.String("promo.outcome", outcome.String()))

	if outcome != promo.OutcomeValid {
		return &Quote{Price: regular, Outcome: outcome}, nil
	}
	return &Quote{
		Price:   currency.NewMoney(c.DiscountedPrice(p.Price), p.Currency),
		Outcome: outcome,
	}, nil
}
