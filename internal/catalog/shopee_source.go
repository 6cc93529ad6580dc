package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storelink/internal/db"
	"storelink/internal/security"
	"storelink/internal/shopee"
)

// ItemLister is the part of the Shopee client that lists a shop's items.
type ItemLister interface {
	Items(ctx context.Context, accessToken string, shopID int64) ([]shopee.Item, error)
}

// ShopeeSource reads the catalog of a connected shop from the Shopee API,
// using the newest stored token for that shop.
type ShopeeSource struct {
	DB      db.Connector
	Tokens  string
	Timeout time.Duration
	Sealer  security.TokenSealer
	API     ItemLister
}

type shopeeEntry struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	ItemSKU  string `json:"item_sku"`
	Price    string `json:"price"`
	Stock    int64  `json:"stock"`
}

func (s *ShopeeSource) Read(ctx context.Context, shopID string) ([]byte, error) {
	var tok db.ShopeeToken
	err := db.WithConn(ctx, s.DB, s.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.ShopeeTokensTable(s.Tokens)); err != nil {
			return err
		}
		var err error
		tok, err = db.LatestShopeeToken(ctx, conn, s.Tokens, shopID)
		return err
	})
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("no stored shopee token for shop %q", shopID)
	}
	if err != nil {
		return nil, err
	}

	accessToken, err := s.Sealer.Open(tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("open stored access token: %w", err)
	}
	sid, err := shopee.ParseShopID(tok.ShopID)
	if err != nil {
		return nil, err
	}

	items, err := s.API.Items(ctx, accessToken, sid)
	if err != nil {
		return nil, err
	}
	entries := make([]shopeeEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, shopeeEntry{
			ItemID:   strconv.FormatInt(it.ItemID, 10),
			ItemName: it.ItemName,
			ItemSKU:  it.ItemSKU,
			Price:    it.Price.String(),
			Stock:    it.Stock,
		})
	}
	return json.Marshal(entries)
}
