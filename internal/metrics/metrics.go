// Package metrics defines the service's OpenTelemetry instruments and the
// OTLP/HTTP meter provider that exports them.
package metrics

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// durationBuckets are histogram boundaries in milliseconds.
var durationBuckets = []float64{2, 5, 10, 25, 50, 100, 200, 400, 800, 1000, 2000, 5000, 10000, 30000}

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Business metrics
	OrdersCreated   metric.Int64Counter
	OrdersCancelled metric.Int64Counter
	StatusChanges   metric.Int64Counter
	RevenueTotal    metric.Float64Counter
	UnitsSold       metric.Int64Counter
	UnitsRestocked  metric.Int64Counter
	StockRejections metric.Int64Counter
	CartMutations   metric.Int64Counter
	ProductsViewed  metric.Int64Counter
	ProductsDeleted metric.Int64Counter
	ReviewsPosted   metric.Int64Counter

	serviceName string
}

// New creates every instrument on meter.
func New(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	m := &AppMetrics{serviceName: serviceName}

	counters := []struct {
		dst         *metric.Int64Counter
		name        string
		description string
	}{
		{&m.HTTPRequestsTotal, "http.server.request.count", "Total number of HTTP requests"},
		{&m.HTTPRequestsErrors, "http.server.request.error.count", "Total number of HTTP error responses"},
		{&m.OrdersCreated, "orders_created_total", "Total number of orders placed"},
		{&m.OrdersCancelled, "orders_cancelled_total", "Total number of orders cancelled"},
		{&m.StatusChanges, "order_status_changes_total", "Total number of seller status changes"},
		{&m.UnitsSold, "units_sold_total", "Units of stock taken by checkouts"},
		{&m.UnitsRestocked, "units_restocked_total", "Units of stock returned by cancellations"},
		{&m.StockRejections, "stock_rejections_total", "Requests rejected for insufficient stock"},
		{&m.CartMutations, "cart_mutations_total", "Cart add, update and remove operations"},
		{&m.ProductsViewed, "products_viewed_total", "Total number of product views"},
		{&m.ProductsDeleted, "products_deleted_total", "Products removed from the catalogue"},
		{&m.ReviewsPosted, "reviews_posted_total", "Product reviews submitted"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1"))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total value of placed orders"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return m, nil
}

// Nop returns metrics backed by a no-op meter.
func Nop() *AppMetrics {
	m, err := New(noop.NewMeterProvider().Meter("nop"), "nop")
	if err != nil {
		panic(err)
	}
	return m
}

// InitProvider builds an OTLP/HTTP meter provider, installs it globally and
// returns it so the caller can shut it down.
func InitProvider(ctx context.Context, cfg config.TelemetryConfig) (*sdkmetric.MeterProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.ExportInterval))),
	)
	otel.SetMeterProvider(provider)

	return provider, nil
}

func (m *AppMetrics) attrs(kv ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append(kv, attribute.String("service.name", m.serviceName))...)
}

// RecordHTTP records one served request.
func (m *AppMetrics) RecordHTTP(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	opt := m.attrs(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, opt)
	if status >= 400 {
		m.HTTPRequestsErrors.Add(ctx, 1, opt)
	}
	m.HTTPRequestDuration.Record(ctx, float64(elapsed.Microseconds())/1000, opt)
}

// OrderPlaced records a successful checkout.
func (m *AppMetrics) OrderPlaced(ctx context.Context, total decimal.Decimal, units int, promo bool) {
	opt := m.attrs(attribute.Bool("promo", promo))
	m.OrdersCreated.Add(ctx, 1, opt)
	m.UnitsSold.Add(ctx, int64(units), opt)
	m.RevenueTotal.Add(ctx, total.InexactFloat64(), opt)
}

// OrderCancelled records a cancellation and the units it returned to stock.
func (m *AppMetrics) OrderCancelled(ctx context.Context, units int, actor string) {
	opt := m.attrs(attribute.String("actor", actor))
	m.OrdersCancelled.Add(ctx, 1, opt)
	m.UnitsRestocked.Add(ctx, int64(units), opt)
}

// StatusChanged records a seller-driven status transition.
func (m *AppMetrics) StatusChanged(ctx context.Context, from, to string) {
	m.StatusChanges.Add(ctx, 1, m.attrs(attribute.String("from", from), attribute.String("to", to)))
}

// StockRejected records a request refused for insufficient stock.
func (m *AppMetrics) StockRejected(ctx context.Context, operation string) {
	m.StockRejections.Add(ctx, 1, m.attrs(attribute.String("operation", operation)))
}

// CartMutated records a cart change.
func (m *AppMetrics) CartMutated(ctx context.Context, operation string) {
	m.CartMutations.Add(ctx, 1, m.attrs(attribute.String("operation", operation)))
}

// ProductViewed records a product detail read.
func (m *AppMetrics) ProductViewed(ctx context.Context) {
	m.ProductsViewed.Add(ctx, 1, m.attrs())
}

// ProductDeleted records a product removed by its seller.
func (m *AppMetrics) ProductDeleted(ctx context.Context) {
	m.ProductsDeleted.Add(ctx, 1, m.attrs())
}

// ReviewPosted records a new review with its rating.
func (m *AppMetrics) ReviewPosted(ctx context.Context, rating int) {
	m.ReviewsPosted.Add(ctx, 1, m.attrs(attribute.Int("rating", rating)))
}
