// Package googleplay implements the Google Play storefront client on top
// of the Android Publisher API.
//
// Purchases on Android complete on-device through the Play Billing
// library; the app hands the resulting purchase token to this client via
// the request payload. The client verifies the token server-side and
// acknowledges it, which is what makes the purchase stick (unacknowledged
// purchases are refunded by Play after three days).
//
// Google Play redelivers owned purchases on its own, so this client does
// not implement explicit restoration.
package googleplay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	iap "github.com/xraph/iap"
	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/storefront"
	"github.com/xraph/iap/types"
)

// PayloadToken is the request payload key carrying the Play Billing
// purchase token.
const PayloadToken = "purchase_token"

// purchaseStatePurchased is the ProductPurchase.PurchaseState value for a
// completed purchase (0=purchased, 1=canceled, 2=pending).
const purchaseStatePurchased = 0

// compile-time interface checks
var (
	_ storefront.Client               = (*Client)(nil)
	_ storefront.AvailabilityReporter = (*Client)(nil)
)

// Config configures the Google Play client.
type Config struct {
	// PackageName is the Android application id, e.g. "com.example.game".
	PackageName string

	// CredentialsJSON is the service account key. When empty, Application
	// Default Credentials are used.
	CredentialsJSON []byte
}

type Client struct {
	cfg    Config
	svc    *androidpublisher.Service
	logger *slog.Logger
	tracer trace.Tracer

	mu        sync.Mutex
	sink      storefront.Sink
	listed    map[string]bool
	prices    map[string]types.Money
	catalogue map[string]storefront.Product
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Google Play client. Extra client options are passed to
// the Android Publisher service, which lets tests point it at a local
// server.
func New(ctx context.Context, cfg Config, clientOpts []option.ClientOption, opts ...Option) (*Client, error) {
	if cfg.PackageName == "" {
		return nil, fmt.Errorf("googleplay: package name is required")
	}

	if len(cfg.CredentialsJSON) > 0 {
		credentials, err := google.CredentialsFromJSON(ctx, cfg.CredentialsJSON, androidpublisher.AndroidpublisherScope)
		if err != nil {
			return nil, fmt.Errorf("googleplay: parse credentials: %w", err)
		}
		clientOpts = append([]option.ClientOption{
			option.WithHTTPClient(oauth2.NewClient(ctx, credentials.TokenSource)),
		}, clientOpts...)
	}

	svc, err := androidpublisher.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("googleplay: create publisher service: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		svc:       svc,
		logger:    slog.Default(),
		tracer:    otel.Tracer("iap/googleplay"),
		listed:    make(map[string]bool),
		prices:    make(map[string]types.Money),
		catalogue: make(map[string]storefront.Product),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() storefront.Name { return storefront.NameGooglePlay }

// Initialize lists the app's in-app products on Play and marks catalog
// SKUs found there as purchasable.
func (c *Client) Initialize(ctx context.Context, products []storefront.Product, sink storefront.Sink) {
	c.mu.Lock()
	c.sink = sink
	for _, p := range products {
		c.catalogue[p.SKU] = p
	}
	c.mu.Unlock()

	go func() {
		ctx, span := c.tracer.Start(ctx, "googleplay.Initialize",
			trace.WithAttributes(attribute.String("package", c.cfg.PackageName)))
		defer span.End()

		resp, err := c.svc.Inappproducts.List(c.cfg.PackageName).Context(ctx).Do()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list in-app products")
			c.logger.Error("googleplay: list in-app products failed", "error", err)
			sink.StoreInitialized(fmt.Errorf("googleplay: list in-app products: %w", err))
			return
		}

		c.mu.Lock()
		for _, p := range resp.Inappproduct {
			c.listed[p.Sku] = p.Status == "active"
			if price := priceFromListing(p); !price.IsZero() {
				c.prices[p.Sku] = price
			}
		}
		listed := len(c.listed)
		c.mu.Unlock()

		span.SetAttributes(attribute.Int("products.listed", listed))
		c.logger.Info("googleplay: store initialized",
			"package", c.cfg.PackageName, "listed", listed)
		sink.StoreInitialized(nil)
	}()
}

// Purchase verifies and acknowledges the purchase token carried in the
// request payload.
func (c *Client) Purchase(ctx context.Context, req storefront.Request) {
	go func() {
		ctx, span := c.tracer.Start(ctx, "googleplay.Purchase",
			trace.WithAttributes(
				attribute.String("package", c.cfg.PackageName),
				attribute.String("sku", req.Product.SKU),
			))
		defer span.End()

		comp := c.verify(ctx, req)
		if comp.Err != nil {
			span.RecordError(comp.Err)
			span.SetStatus(codes.Error, "purchase verification")
		}

		c.mu.Lock()
		sink := c.sink
		c.mu.Unlock()
		sink.PurchaseCompleted(comp)
	}()
}

func (c *Client) verify(ctx context.Context, req storefront.Request) storefront.Completion {
	comp := storefront.Completion{Request: req}

	token := req.Payload[PayloadToken]
	if token == "" {
		comp.Err = fmt.Errorf("googleplay: missing %s in purchase payload", PayloadToken)
		return comp
	}

	sku := req.Product.SKU
	if req.Product.Entry != nil && req.Product.Entry.Kind == catalog.KindSubscription {
		sub, err := c.svc.Purchases.Subscriptions.Get(c.cfg.PackageName, sku, token).Context(ctx).Do()
		if err != nil {
			comp.Err = fmt.Errorf("googleplay: verify subscription: %w", err)
			return comp
		}
		if sub.AcknowledgementState == 0 {
			ack := &androidpublisher.SubscriptionPurchasesAcknowledgeRequest{}
			if err := c.svc.Purchases.Subscriptions.Acknowledge(c.cfg.PackageName, sku, token, ack).Context(ctx).Do(); err != nil {
				comp.Err = fmt.Errorf("googleplay: acknowledge subscription: %w", err)
				return comp
			}
		}
		comp.Price = types.FromMicros(sub.PriceAmountMicros, sub.PriceCurrencyCode)
		return comp
	}

	p, err := c.svc.Purchases.Products.Get(c.cfg.PackageName, sku, token).Context(ctx).Do()
	if err != nil {
		comp.Err = fmt.Errorf("googleplay: verify purchase: %w", err)
		return comp
	}
	if p.PurchaseState != purchaseStatePurchased {
		comp.Err = fmt.Errorf("googleplay: %w: purchase state %d", iap.ErrPurchaseFailed, p.PurchaseState)
		return comp
	}
	if p.AcknowledgementState == 0 {
		ack := &androidpublisher.ProductPurchasesAcknowledgeRequest{}
		if err := c.svc.Purchases.Products.Acknowledge(c.cfg.PackageName, sku, token, ack).Context(ctx).Do(); err != nil {
			comp.Err = fmt.Errorf("googleplay: acknowledge purchase: %w", err)
			return comp
		}
	}

	c.mu.Lock()
	comp.Price = c.prices[sku]
	c.mu.Unlock()
	return comp
}

// Purchasable reports whether the SKU was listed as active during
// initialization.
func (c *Client) Purchasable(sku string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listed[sku]
}

func priceFromListing(p *androidpublisher.InAppProduct) types.Money {
	if p.DefaultPrice == nil {
		return types.Zero("")
	}
	micros, err := strconv.ParseInt(p.DefaultPrice.PriceMicros, 10, 64)
	if err != nil {
		return types.Zero("")
	}
	return types.FromMicros(micros, p.DefaultPrice.Currency)
}
