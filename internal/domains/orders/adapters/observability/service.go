package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-gin-storefront/internal/domains/orders/application"
	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	ordersports "github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/go-gin-storefront/internal/domains/orders/adapters/observability/service"

// Service decorates the orders service with tracing, logging, and metrics.
type Service struct {
	inner   ordersports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core orders service.
func New(inner ordersports.Service, opts ...Option) ordersports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.DiscardHandler),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) PlaceOrder(ctx context.Context, cart ordersdomain.Cart) (*ordersdomain.PlacedOrder, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.PlaceOrder",
		trace.WithAttributes(attribute.Int("cart.lines", len(cart.Items)), attribute.String("cart.payment_method", cart.PaymentMethod)))
	defer span.End()

	started := time.Now()
	s.logInfo(ctx, "placing order", slog.Int("cart.lines", len(cart.Items)))
	result, err := s.inner.PlaceOrder(ctx, cart)
	s.metrics.recordDuration(ctx, time.Since(started), err)
	if err != nil {
		s.metrics.recordFailed(ctx, err)
		return nil, s.handleError(ctx, span, err, "failed to place order",
			slog.Int("cart.lines", len(cart.Items)), slog.String("reason", application.FailureReason(err)))
	}
	span.SetAttributes(
		attribute.String("order.id", result.OrderID.String()),
		attribute.String("order.number", result.OrderNumber),
		attribute.Int64("order.sequence", result.Sequence),
	)
	s.metrics.recordPlaced(ctx, result)
	s.logInfo(ctx, "order placed",
		slog.String("order.id", result.OrderID.String()),
		slog.String("order.number", result.OrderNumber),
		slog.Int("order.degraded_lines", result.DegradedLines),
		slog.Bool("order.replayed", result.Replayed))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.GetOrder", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.id", id.String()))
	}
	return result, nil
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.GetOrderByNumber", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	result, err := s.inner.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order by number", slog.String("order.number", number))
	}
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context, filter ordersdomain.ListFilter) ([]*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.ListOrders",
		trace.WithAttributes(attribute.String("filter.status", string(filter.Status)), attribute.Int("filter.limit", filter.Limit)))
	defer span.End()

	result, err := s.inner.ListOrders(ctx, filter)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders")
	}
	span.SetAttributes(attribute.Int("orders.count", len(result)))
	return result, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status ordersdomain.Status, trackingCode string) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.UpdateStatus",
		trace.WithAttributes(attribute.String("order.id", id.String()), attribute.String("order.status", string(status))))
	defer span.End()

	s.logInfo(ctx, "updating order status", slog.String("order.id", id.String()), slog.String("status", string(status)))
	result, err := s.inner.UpdateStatus(ctx, id, status, trackingCode)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update order status", slog.String("order.id", id.String()))
	}
	s.metrics.recordStatusChange(ctx, result.Status)
	s.logInfo(ctx, "order status updated", slog.String("order.id", id.String()), slog.String("status", string(result.Status)))
	return result, nil
}

func (s *Service) AdjustStock(ctx context.Context, adj ordersdomain.StockAdjustment) error {
	ctx, span := s.tracer.Start(ctx, "OrdersService.AdjustStock",
		trace.WithAttributes(attribute.String("product.id", adj.ProductID.String()), attribute.Int("stock.delta", adj.Delta)))
	defer span.End()

	attrs := []slog.Attr{slog.String("product.id", adj.ProductID.String()), slog.Int("stock.delta", adj.Delta)}
	if adj.Selector != nil {
		attrs = append(attrs, slog.String("variant", adj.Selector.String()))
	}
	s.logInfo(ctx, "adjusting stock", attrs...)
	if err := s.inner.AdjustStock(ctx, adj); err != nil {
		return s.handleError(ctx, span, err, "failed to adjust stock", attrs...)
	}
	s.logInfo(ctx, "stock adjusted", attrs...)
	return nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	placed        metric.Int64Counter
	replayed      metric.Int64Counter
	failed        metric.Int64Counter
	degradedLines metric.Int64Counter
	statusChanges metric.Int64Counter
	placeDuration metric.Float64Histogram
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	placed, _ := m.Int64Counter("orders.service.placed", metric.WithDescription("Number of orders placed"))
	replayed, _ := m.Int64Counter("orders.service.replayed", metric.WithDescription("Placements answered from a stored idempotency key"))
	failed, _ := m.Int64Counter("orders.service.failed", metric.WithDescription("Number of failed order placements by reason"))
	degraded, _ := m.Int64Counter("orders.service.degraded_lines",
		metric.WithDescription("Cart lines validated against product stock because the variant row was missing"))
	statusChanges, _ := m.Int64Counter("orders.service.status_changes", metric.WithDescription("Number of order status transitions"))
	placeDuration, _ := m.Float64Histogram("orders.service.place_duration_ms",
		metric.WithDescription("Order placement latency"), metric.WithUnit("ms"))
	return serviceMetrics{
		placed:        placed,
		replayed:      replayed,
		failed:        failed,
		degradedLines: degraded,
		statusChanges: statusChanges,
		placeDuration: placeDuration,
	}
}

func (m serviceMetrics) recordPlaced(ctx context.Context, placed *ordersdomain.PlacedOrder) {
	if placed.Replayed {
		if m.replayed != nil {
			m.replayed.Add(ctx, 1)
		}
		return
	}
	if m.placed != nil {
		m.placed.Add(ctx, 1)
	}
	if m.degradedLines != nil && placed.DegradedLines > 0 {
		m.degradedLines.Add(ctx, int64(placed.DegradedLines))
	}
}

func (m serviceMetrics) recordFailed(ctx context.Context, err error) {
	if m.failed != nil {
		m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", application.FailureReason(err))))
	}
}

func (m serviceMetrics) recordDuration(ctx context.Context, d time.Duration, err error) {
	if m.placeDuration != nil {
		m.placeDuration.Record(ctx, float64(d.Microseconds())/1000, metric.WithAttributes(attribute.Bool("success", err == nil)))
	}
}

func (m serviceMetrics) recordStatusChange(ctx context.Context, status ordersdomain.Status) {
	if m.statusChanges != nil {
		m.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	}
}

var _ ordersports.Service = (*Service)(nil)
