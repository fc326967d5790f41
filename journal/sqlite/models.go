package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/id"
	"github.com/xraph/iap/journal"
	"github.com/xraph/iap/types"
)

type entryModel struct {
	grove.BaseModel `grove:"table:iap_transactions"`

	ID         string          `grove:"id,pk"`
	ProductID  string          `grove:"product_id"`
	Store      string          `grove:"store"`
	Kind       string          `grove:"kind"`
	Success    bool            `grove:"success"`
	Restored   bool            `grove:"restored"`
	Price      json.RawMessage `grove:"price"`
	Reason     string          `grove:"reason"`
	OccurredAt time.Time       `grove:"occurred_at"`
	CreatedAt  time.Time       `grove:"created_at"`
	UpdatedAt  time.Time       `grove:"updated_at"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	price, _ := json.Marshal(e.Price) //nolint:errcheck // best-effort

	return &entryModel{
		ID:         e.ID.String(),
		ProductID:  e.ProductID,
		Store:      e.Store,
		Kind:       string(e.Kind),
		Success:    e.Success,
		Restored:   e.Restored,
		Price:      price,
		Reason:     e.Reason,
		OccurredAt: e.OccurredAt,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}

	var price types.Money
	if len(m.Price) > 0 {
		_ = json.Unmarshal(m.Price, &price) //nolint:errcheck // best-effort
	}

	return &journal.Entry{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         txnID,
		ProductID:  m.ProductID,
		Store:      m.Store,
		Kind:       catalog.Kind(m.Kind),
		Success:    m.Success,
		Restored:   m.Restored,
		Price:      price,
		Reason:     m.Reason,
		OccurredAt: m.OccurredAt,
	}, nil
}
