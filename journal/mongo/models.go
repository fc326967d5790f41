package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/id"
	"github.com/xraph/iap/journal"
	"github.com/xraph/iap/types"
)

type entryModel struct {
	grove.BaseModel `grove:"table:iap_transactions"`

	ID         string     `grove:"id,pk"       bson:"_id"`
	ProductID  string     `grove:"product_id"  bson:"product_id"`
	Store      string     `grove:"store"       bson:"store"`
	Kind       string     `grove:"kind"        bson:"kind"`
	Success    bool       `grove:"success"     bson:"success"`
	Restored   bool       `grove:"restored"    bson:"restored"`
	Price      priceModel `grove:"price"       bson:"price"`
	Reason     string     `grove:"reason"      bson:"reason"`
	OccurredAt time.Time  `grove:"occurred_at" bson:"occurred_at"`
	CreatedAt  time.Time  `grove:"created_at"  bson:"created_at"`
	UpdatedAt  time.Time  `grove:"updated_at"  bson:"updated_at"`
}

type priceModel struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	return &entryModel{
		ID:         e.ID.String(),
		ProductID:  e.ProductID,
		Store:      e.Store,
		Kind:       string(e.Kind),
		Success:    e.Success,
		Restored:   e.Restored,
		Price:      priceModel{Amount: e.Price.Amount, Currency: e.Price.Currency},
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
		Price:      types.Money{Amount: m.Price.Amount, Currency: m.Price.Currency},
		Reason:     m.Reason,
		OccurredAt: m.OccurredAt,
	}, nil
}
