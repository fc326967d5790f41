package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xraph/iap/catalog"
)

func TestNewRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name      string
		entries   []catalog.Entry
		wantErr   string
		wantField string
	}{
		{
			name:      "empty id",
			entries:   []catalog.Entry{{ID: "", Kind: catalog.KindConsumable}},
			wantErr:   "empty product id",
			wantField: "id",
		},
		{
			name:      "unknown kind",
			entries:   []catalog.Entry{{ID: "gold100", Kind: "loot_box"}},
			wantErr:   "unknown kind",
			wantField: "kind",
		},
		{
			name: "empty sku override",
			entries: []catalog.Entry{{ID: "gold100", Kind: catalog.KindConsumable,
				StoreSkus: map[string]string{"google_play": ""}}},
			wantErr:   "empty sku",
			wantField: "store_skus",
		},
		{
			name: "duplicate id",
			entries: []catalog.Entry{
				{ID: "gold100", Kind: catalog.KindConsumable},
				{ID: "gold100", Kind: catalog.KindConsumable},
			},
			wantErr: "duplicate product id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.New(tt.entries...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
			if tt.wantField != "" {
				var verr *catalog.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("field = %q, want %q", verr.Field, tt.wantField)
				}
			}
		})
	}
}

func TestFindPreservesOrder(t *testing.T) {
	c, err := catalog.New(
		catalog.Entry{ID: "gold100", Kind: catalog.KindConsumable},
		catalog.Entry{ID: "no_ads", Kind: catalog.KindNonConsumable},
		catalog.Entry{ID: "season_pass", Kind: catalog.KindSubscription},
	)
	if err != nil {
		t.Fatal(err)
	}

	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3", c.Len())
	}

	if e := c.Find("no_ads"); e == nil || e.Kind != catalog.KindNonConsumable {
		t.Errorf("Find(no_ads) = %+v", e)
	}
	if e := c.Find("missing"); e != nil {
		t.Errorf("Find(missing) = %+v, want nil", e)
	}

	entries := c.Entries()
	want := []string{"gold100", "no_ads", "season_pass"}
	for i, id := range want {
		if entries[i].ID != id {
			t.Errorf("entries[%d].ID = %q, want %q", i, entries[i].ID, id)
		}
	}
}

func TestSKUFor(t *testing.T) {
	e := catalog.Entry{
		ID:   "gold100",
		Kind: catalog.KindConsumable,
		StoreSkus: map[string]string{
			"google_play": "com.example.gold.100",
		},
	}

	if sku := e.SKUFor("google_play"); sku != "com.example.gold.100" {
		t.Errorf("mapped SKU = %q", sku)
	}
	// Without an explicit mapping the logical id doubles as the SKU.
	if sku := e.SKUFor("apple_appstore"); sku != "gold100" {
		t.Errorf("fallback SKU = %q", sku)
	}
}

func TestParse(t *testing.T) {
	doc := `{
		"products": [
			{"id": "gold100", "kind": "consumable",
			 "store_skus": {"google_play": "com.example.gold.100"}},
			{"id": "season_pass", "kind": "subscription"}
		]
	}`

	c, err := catalog.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if e := c.Find("gold100"); e.SKUFor("google_play") != "com.example.gold.100" {
		t.Errorf("sku = %q", e.SKUFor("google_play"))
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	doc := `{"products": [], "extra": true}`
	if _, err := catalog.Parse(strings.NewReader(doc)); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := `{"products": [{"id": "no_ads", "kind": "non_consumable"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := catalog.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Find("no_ads") == nil {
		t.Error("expected no_ads entry")
	}

	if _, err := catalog.LoadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
