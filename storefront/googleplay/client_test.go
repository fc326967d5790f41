package googleplay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	iap "github.com/xraph/iap"
	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/storefront"
)

// sinkRecorder captures Sink callbacks for assertions.
type sinkRecorder struct {
	mu          sync.Mutex
	initErr     error
	initCalled  bool
	completions []storefront.Completion
	ch          chan struct{}
}

func newSinkRecorder() *sinkRecorder {
	return &sinkRecorder{ch: make(chan struct{}, 8)}
}

func (s *sinkRecorder) StoreInitialized(err error) {
	s.mu.Lock()
	s.initErr = err
	s.initCalled = true
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *sinkRecorder) PurchaseCompleted(c storefront.Completion) {
	s.mu.Lock()
	s.completions = append(s.completions, c)
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *sinkRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sink callback")
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(context.Background(), Config{PackageName: "com.example.game"},
		[]option.ClientOption{
			option.WithEndpoint(ts.URL),
			option.WithHTTPClient(ts.Client()),
		})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func goldProduct() storefront.Product {
	return storefront.Product{
		Entry: &catalog.Entry{ID: "gold_100", Kind: catalog.KindConsumable},
		SKU:   "gold_100",
	}
}

func TestInitializeListsProducts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"inappproduct":[
			{"sku":"gold_100","status":"active","defaultPrice":{"priceMicros":"4990000","currency":"USD"}},
			{"sku":"old_bundle","status":"inactive"}
		]}`)
	}))

	sink := newSinkRecorder()
	c.Initialize(context.Background(), []storefront.Product{goldProduct()}, sink)
	sink.wait(t)

	if sink.initErr != nil {
		t.Fatalf("expected successful init, got %v", sink.initErr)
	}
	if !c.Purchasable("gold_100") {
		t.Error("active listed SKU should be purchasable")
	}
	if c.Purchasable("old_bundle") {
		t.Error("inactive SKU should not be purchasable")
	}
	if c.Purchasable("never_listed") {
		t.Error("unlisted SKU should not be purchasable")
	}
}

func TestInitializeFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"internal"}`)
	}))

	sink := newSinkRecorder()
	c.Initialize(context.Background(), nil, sink)
	sink.wait(t)

	if sink.initErr == nil {
		t.Fatal("expected init failure when listing fails")
	}
}

func TestPurchaseVerifiesAndAcknowledges(t *testing.T) {
	var acked bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":acknowledge"):
			acked = true
			_, _ = io.WriteString(w, `{}`)
		case strings.Contains(r.URL.Path, "/purchases/products/"):
			_, _ = io.WriteString(w, `{"purchaseState":0,"acknowledgementState":0}`)
		default:
			_, _ = io.WriteString(w, `{"inappproduct":[{"sku":"gold_100","status":"active","defaultPrice":{"priceMicros":"4990000","currency":"USD"}}]}`)
		}
	}))

	sink := newSinkRecorder()
	c.Initialize(context.Background(), []storefront.Product{goldProduct()}, sink)
	sink.wait(t)

	c.Purchase(context.Background(), storefront.Request{
		Product: goldProduct(),
		Payload: map[string]string{PayloadToken: "token-abc"},
	})
	sink.wait(t)

	if len(sink.completions) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(sink.completions))
	}
	comp := sink.completions[0]
	if comp.Err != nil {
		t.Fatalf("expected success, got %v", comp.Err)
	}
	if !acked {
		t.Error("expected purchase acknowledgement call")
	}
	if comp.Price.Amount != 499 || comp.Price.Currency != "usd" {
		t.Errorf("expected listed price 499 usd, got %v", comp.Price)
	}
}

func TestPurchaseVerifiesSubscription(t *testing.T) {
	var acked bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case !strings.Contains(r.URL.Path, "/purchases/subscriptions/"):
			t.Errorf("expected subscription endpoint, got %s", r.URL.Path)
			_, _ = io.WriteString(w, `{}`)
		case strings.HasSuffix(r.URL.Path, ":acknowledge"):
			acked = true
			_, _ = io.WriteString(w, `{}`)
		default:
			_, _ = io.WriteString(w, `{"acknowledgementState":0,"priceAmountMicros":"4990000","priceCurrencyCode":"USD"}`)
		}
	}))

	sink := newSinkRecorder()
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()

	c.Purchase(context.Background(), storefront.Request{
		Product: storefront.Product{
			Entry: &catalog.Entry{ID: "season_pass", Kind: catalog.KindSubscription},
			SKU:   "season_pass",
		},
		Payload: map[string]string{PayloadToken: "token-sub"},
	})
	sink.wait(t)

	comp := sink.completions[0]
	if comp.Err != nil {
		t.Fatalf("expected success, got %v", comp.Err)
	}
	if !acked {
		t.Error("expected subscription acknowledgement call")
	}
	// Play reports subscription prices in micros with an uppercase
	// currency code; the completion must carry the normalized form.
	if comp.Price.Amount != 499 || comp.Price.Currency != "usd" {
		t.Errorf("expected 499 usd, got %v", comp.Price)
	}
}

func TestPurchaseRejectsPendingState(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"purchaseState":2}`)
	}))

	sink := newSinkRecorder()
	c.Initialize(context.Background(), nil, sink)
	// Listing response is not valid here; discard the init outcome.
	sink.wait(t)

	c.Purchase(context.Background(), storefront.Request{
		Product: goldProduct(),
		Payload: map[string]string{PayloadToken: "token-abc"},
	})
	sink.wait(t)

	comp := sink.completions[len(sink.completions)-1]
	if comp.Err == nil {
		t.Fatal("expected pending purchase to fail verification")
	}
	if !errors.Is(comp.Err, iap.ErrPurchaseFailed) {
		t.Errorf("expected ErrPurchaseFailed, got %v", comp.Err)
	}
}

func TestPurchaseRequiresToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected without a token")
	}))

	sink := newSinkRecorder()
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()

	c.Purchase(context.Background(), storefront.Request{Product: goldProduct()})
	sink.wait(t)

	comp := sink.completions[0]
	if comp.Err == nil {
		t.Fatal("expected failure without purchase token")
	}
}

func TestNewRequiresPackageName(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error for missing package name")
	}
}
