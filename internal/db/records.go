package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"storelink/internal/apperr"
)

var ErrNotFound = errors.New("not found")

type ShopeeCallback struct {
	Code   string
	ShopID string
}

type TikTokCallback struct {
	Code       string
	AppKey     string
	ShopRegion string
	State      string
}

type TikTokToken struct {
	TikTokCallback
	AccessToken   string
	RefreshToken  string
	AccessExpire  int64
	RefreshExpire int64
}

type ShopeeToken struct {
	Code         string
	ShopID       string
	AccessToken  string
	RefreshToken string
	ExpireIn     int64
	RequestID    string
}

type TikTokShop struct {
	ShopID     string
	Code       string
	Name       string
	Region     string
	SellerType string
	Cipher     string
}

type Product struct {
	ItemID   string
	ItemName string
	ItemSKU  string
	Price    decimal.Decimal
	Stock    int64
}

const (
	ProductCurrency = "IDR"
	ProductStatus   = "active"
)

type AdminCredential struct {
	ID           int64
	Username     string
	PasswordHash string
}

func checkTable(name string) error {
	if !ValidTableName(name) {
		return apperr.Persistence("table", fmt.Errorf("invalid table name %q", name))
	}
	return nil
}

func exec(ctx context.Context, conn Conn, what, sql string, args ...any) error {
	if _, err := conn.Exec(ctx, sql, args...); err != nil {
		return apperr.Persistence(what, err)
	}
	return nil
}

func InsertShopeeCallback(ctx context.Context, conn Conn, table string, r ShopeeCallback) error {
	if err := checkTable(table); err != nil {
		return err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (code, shop_id) VALUES ($1, $2)`, Ident(table))
	return exec(ctx, conn, "insert shopee callback", sql, r.Code, r.ShopID)
}

func InsertTikTokToken(ctx context.Context, conn Conn, table string, r TikTokToken) error {
	if err := checkTable(table); err != nil {
		return err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (code, app_key, shop_region, state, access_token, refresh_token, access_expire, refresh_expire)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, Ident(table))
	return exec(ctx, conn, "insert tiktok token", sql,
		r.Code, r.AppKey, r.ShopRegion, r.State,
		r.AccessToken, r.RefreshToken, r.AccessExpire, r.RefreshExpire)
}

func InsertShopeeToken(ctx context.Context, conn Conn, table string, r ShopeeToken) error {
	if err := checkTable(table); err != nil {
		return err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (code, shop_id, access_token, refresh_token, expire_in, request_id)
VALUES ($1, $2, $3, $4, $5, $6)`, Ident(table))
	return exec(ctx, conn, "insert shopee token", sql,
		r.Code, r.ShopID, r.AccessToken, r.RefreshToken, r.ExpireIn, r.RequestID)
}

// LatestTikTokToken returns the newest token row that still carries a
// refresh token.
func LatestTikTokToken(ctx context.Context, conn Conn, table string) (TikTokToken, error) {
	var t TikTokToken
	if err := checkTable(table); err != nil {
		return t, err
	}
	sql := fmt.Sprintf(`SELECT app_key, shop_region, access_token, refresh_token FROM %s
WHERE refresh_token <> '' ORDER BY id DESC LIMIT 1`, Ident(table))
	err := conn.QueryRow(ctx, sql).Scan(&t.AppKey, &t.ShopRegion, &t.AccessToken, &t.RefreshToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, apperr.Persistence("load latest tiktok token", err)
	}
	return t, nil
}

// LatestShopeeToken returns the newest refreshable token row, limited to
// shopID when it is not empty.
func LatestShopeeToken(ctx context.Context, conn Conn, table, shopID string) (ShopeeToken, error) {
	var t ShopeeToken
	if err := checkTable(table); err != nil {
		return t, err
	}
	where := `refresh_token <> ''`
	var args []any
	if shopID != "" {
		where += ` AND shop_id = $1`
		args = append(args, shopID)
	}
	sql := fmt.Sprintf(`SELECT shop_id, access_token, refresh_token FROM %s
WHERE %s ORDER BY id DESC LIMIT 1`, Ident(table), where)
	err := conn.QueryRow(ctx, sql, args...).Scan(&t.ShopID, &t.AccessToken, &t.RefreshToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, apperr.Persistence("load latest shopee token", err)
	}
	return t, nil
}

func LatestShopeeCallback(ctx context.Context, conn Conn, table string) (ShopeeCallback, error) {
	var c ShopeeCallback
	if err := checkTable(table); err != nil {
		return c, err
	}
	sql := fmt.Sprintf(`SELECT code, shop_id FROM %s ORDER BY id DESC LIMIT 1`, Ident(table))
	err := conn.QueryRow(ctx, sql).Scan(&c.Code, &c.ShopID)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, apperr.Persistence("load latest shopee callback", err)
	}
	return c, nil
}

// UpsertProduct is a single conditional write so concurrent importers of the
// same item_id cannot lose an update. create_time is only set on insert.
func UpsertProduct(ctx context.Context, conn Conn, table string, p Product) error {
	if err := checkTable(table); err != nil {
		return err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (item_id, item_name, item_sku, price, stock, currency, status, create_time, update_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
ON CONFLICT (item_id) DO UPDATE SET item_name = EXCLUDED.item_name, item_sku = EXCLUDED.item_sku, price = EXCLUDED.price, stock = EXCLUDED.stock, update_time = NOW()`, Ident(table))
	return exec(ctx, conn, "upsert product "+p.ItemID, sql,
		p.ItemID, p.ItemName, p.ItemSKU, p.Price, p.Stock, ProductCurrency, ProductStatus)
}

func UpsertTikTokShop(ctx context.Context, conn Conn, table string, s TikTokShop) error {
	if err := checkTable(table); err != nil {
		return err
	}
	sql := fmt.Sprintf(`INSERT INTO %s (shop_id, code, name, region, seller_type, cipher, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (shop_id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, region = EXCLUDED.region, seller_type = EXCLUDED.seller_type, cipher = EXCLUDED.cipher, updated_at = NOW()`, Ident(table))
	return exec(ctx, conn, "upsert tiktok shop "+s.ShopID, sql,
		s.ShopID, s.Code, s.Name, s.Region, s.SellerType, s.Cipher)
}

func FindAdmin(ctx context.Context, conn Conn, table, username string) (AdminCredential, error) {
	var a AdminCredential
	if err := checkTable(table); err != nil {
		return a, err
	}
	sql := fmt.Sprintf(`SELECT id, username, password_hash FROM %s WHERE username = $1 LIMIT 1`, Ident(table))
	err := conn.QueryRow(ctx, sql, username).Scan(&a.ID, &a.Username, &a.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, apperr.Persistence("load admin user", err)
	}
	return a, nil
}

func Now(ctx context.Context, conn Conn) (time.Time, error) {
	var t time.Time
	if err := conn.QueryRow(ctx, `SELECT NOW()`).Scan(&t); err != nil {
		return t, apperr.Persistence("select now", err)
	}
	return t, nil
}
