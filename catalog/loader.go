package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// file is the on-disk authoring format:
//
//	{
//	  "products": [
//	    {"id": "gold100", "kind": "consumable",
//	     "store_skus": {"google_play": "com.example.gold100"}}
//	  ]
//	}
type file struct {
	Products []Entry `json:"products"`
}

// Parse reads a catalog document from r and validates it.
func Parse(r io.Reader) (*Catalog, error) {
	var f file

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	return New(f.Products...)
}

// LoadFile reads and validates the catalog authored at path.
func LoadFile(path string) (*Catalog, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer fh.Close() //nolint:errcheck // read-only file

	c, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}
	return c, nil
}
