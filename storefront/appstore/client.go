// Package appstore implements the Apple App Store storefront client on
// top of the App Store Server API.
//
// Purchases on iOS complete on-device through StoreKit; the app hands the
// resulting transaction id to this client via the request payload. The
// client looks the transaction up server-side and treats a matching
// product id as proof of purchase.
//
// The App Store does not redeliver owned transactions on its own, so this
// client implements explicit restoration by walking the customer's
// transaction history.
package appstore

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	iap "github.com/xraph/iap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/iap/storefront"
	"github.com/xraph/iap/types"
)

// PayloadTransactionID is the request payload key carrying the StoreKit
// transaction id.
const PayloadTransactionID = "transaction_id"

// API base URLs.
const (
	ProductionURL = "https://api.storekit.itunes.apple.com"
	SandboxURL    = "https://api.storekit-sandbox.itunes.apple.com"
)

const tokenTTL = 5 * time.Minute

// compile-time interface checks
var (
	_ storefront.Client   = (*Client)(nil)
	_ storefront.Restorer = (*Client)(nil)
)

// Config configures the App Store client.
type Config struct {
	// KeyID is the in-app purchase key id from App Store Connect.
	KeyID string

	// IssuerID is the issuer id from App Store Connect.
	IssuerID string

	// BundleID is the app's bundle identifier.
	BundleID string

	// PrivateKey is the PEM-encoded ES256 signing key downloaded from
	// App Store Connect.
	PrivateKey []byte

	// Sandbox selects the sandbox environment.
	Sandbox bool

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Sandbox {
		return SandboxURL
	}
	return ProductionURL
}

type Client struct {
	cfg    Config
	key    *ecdsa.PrivateKey
	http   *http.Client
	logger *slog.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	sink     storefront.Sink
	bySKU    map[string]storefront.Product
	original string // original transaction id anchoring history walks
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates an App Store client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.KeyID == "" || cfg.IssuerID == "" || cfg.BundleID == "" {
		return nil, fmt.Errorf("appstore: key id, issuer id, and bundle id are required")
	}

	key, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		key:    key,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
		tracer: otel.Tracer("iap/appstore"),
		bySKU:  make(map[string]storefront.Product),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parsePrivateKey(pemKey []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("appstore: private key is not PEM encoded")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("appstore: parse private key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("appstore: private key is not an ECDSA key")
	}
	return key, nil
}

func (c *Client) Name() storefront.Name { return storefront.NameAppleAppStore }

// token signs a short-lived ES256 bearer token for the Server API.
func (c *Client) token() (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.cfg.IssuerID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
		"aud": "appstoreconnect-v1",
		"bid": c.cfg.BundleID,
	})
	t.Header["kid"] = c.cfg.KeyID

	signed, err := t.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("appstore: sign token: %w", err)
	}
	return signed, nil
}

// Initialize registers the catalog and reports ready. Product metadata
// lives in App Store Connect; there is no listing call on the Server API,
// so initialization only has to prove the signing key works.
func (c *Client) Initialize(_ context.Context, products []storefront.Product, sink storefront.Sink) {
	c.mu.Lock()
	c.sink = sink
	for _, p := range products {
		c.bySKU[p.SKU] = p
	}
	c.mu.Unlock()

	if _, err := c.token(); err != nil {
		sink.StoreInitialized(err)
		return
	}

	c.logger.Info("appstore: store initialized",
		"bundle", c.cfg.BundleID, "products", len(products))
	sink.StoreInitialized(nil)
}

// Purchase looks up the transaction id carried in the request payload.
func (c *Client) Purchase(ctx context.Context, req storefront.Request) {
	go func() {
		ctx, span := c.tracer.Start(ctx, "appstore.Purchase",
			trace.WithAttributes(
				attribute.String("bundle", c.cfg.BundleID),
				attribute.String("sku", req.Product.SKU),
			))
		defer span.End()

		comp := c.verify(ctx, req)
		if comp.Err != nil {
			span.RecordError(comp.Err)
			span.SetStatus(codes.Error, "transaction verification")
		}

		c.mu.Lock()
		sink := c.sink
		c.mu.Unlock()
		sink.PurchaseCompleted(comp)
	}()
}

func (c *Client) verify(ctx context.Context, req storefront.Request) storefront.Completion {
	comp := storefront.Completion{Request: req}

	txnID := req.Payload[PayloadTransactionID]
	if txnID == "" {
		comp.Err = fmt.Errorf("appstore: missing %s in purchase payload", PayloadTransactionID)
		return comp
	}

	txn, err := c.transactionInfo(ctx, txnID)
	if err != nil {
		comp.Err = err
		return comp
	}

	if txn.ProductID != req.Product.SKU {
		comp.Err = fmt.Errorf("appstore: %w: transaction %s is for product %q, not %q",
			iap.ErrVerificationFailed, txnID, txn.ProductID, req.Product.SKU)
		return comp
	}
	if txn.RevocationDate != 0 {
		comp.Err = fmt.Errorf("appstore: %w: transaction %s was revoked",
			iap.ErrVerificationFailed, txnID)
		return comp
	}

	c.mu.Lock()
	if txn.OriginalTransactionID != "" {
		c.original = txn.OriginalTransactionID
	}
	c.mu.Unlock()

	comp.Price = txn.money()
	return comp
}

// RestoreTransactions walks the customer's transaction history and
// redelivers every unrevoked transaction whose product is in the catalog.
func (c *Client) RestoreTransactions(ctx context.Context) {
	c.mu.Lock()
	original := c.original
	sink := c.sink
	c.mu.Unlock()

	if original == "" {
		c.logger.Warn("appstore: restore skipped, no anchoring transaction known")
		return
	}

	go func() {
		ctx, span := c.tracer.Start(ctx, "appstore.RestoreTransactions",
			trace.WithAttributes(attribute.String("bundle", c.cfg.BundleID)))
		defer span.End()

		revision := ""
		for {
			page, err := c.history(ctx, original, revision)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "transaction history")
				c.logger.Error("appstore: transaction history failed", "error", err)
				return
			}

			for _, signed := range page.SignedTransactions {
				txn, err := decodeTransaction(signed)
				if err != nil {
					c.logger.Warn("appstore: skipping undecodable transaction", "error", err)
					continue
				}
				if txn.RevocationDate != 0 {
					continue
				}

				c.mu.Lock()
				product, ok := c.bySKU[txn.ProductID]
				c.mu.Unlock()
				if !ok {
					continue
				}

				sink.PurchaseCompleted(storefront.Completion{
					Request:  storefront.Request{Product: product},
					Price:    txn.money(),
					Restored: true,
				})
			}

			if !page.HasMore {
				return
			}
			revision = page.Revision
		}
	}()
}

// ──────────────────────────────────────────────────
// Server API calls
// ──────────────────────────────────────────────────

// transaction is the decoded JWS transaction payload.
type transaction struct {
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	ProductID             string `json:"productId"`
	Type                  string `json:"type"`
	Price                 int64  `json:"price"` // milliunits
	Currency              string `json:"currency"`
	RevocationDate        int64  `json:"revocationDate,omitempty"`
}

func (t *transaction) money() types.Money {
	if t.Currency == "" {
		return types.Zero("")
	}
	// Price is reported in milliunits of the currency.
	return types.Money{Amount: t.Price / 10, Currency: strings.ToLower(t.Currency)}
}

type transactionInfoResponse struct {
	SignedTransactionInfo string `json:"signedTransactionInfo"`
}

type historyResponse struct {
	Revision           string   `json:"revision"`
	HasMore            bool     `json:"hasMore"`
	SignedTransactions []string `json:"signedTransactions"`
}

func (c *Client) transactionInfo(ctx context.Context, txnID string) (*transaction, error) {
	var resp transactionInfoResponse
	path := "/inApps/v1/transactions/" + url.PathEscape(txnID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return decodeTransaction(resp.SignedTransactionInfo)
}

func (c *Client) history(ctx context.Context, originalTxnID, revision string) (*historyResponse, error) {
	var resp historyResponse
	path := "/inApps/v2/history/" + url.PathEscape(originalTxnID)
	query := url.Values{}
	if revision != "" {
		query.Set("revision", revision)
	}
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	token, err := c.token()
	if err != nil {
		return err
	}

	u := c.cfg.baseURL() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("appstore: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("appstore: %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck
		return fmt.Errorf("appstore: %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("appstore: decode %s response: %w", path, err)
	}
	return nil
}

// decodeTransaction extracts the claims from a signed JWS transaction.
// The payload arrives over TLS from Apple directly; the x5c certificate
// chain is not re-verified.
func decodeTransaction(signed string) (*transaction, error) {
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("appstore: malformed signed transaction")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("appstore: decode transaction payload: %w", err)
	}
	var txn transaction
	if err := json.Unmarshal(payload, &txn); err != nil {
		return nil, fmt.Errorf("appstore: parse transaction payload: %w", err)
	}
	return &txn, nil
}
