package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storelink/internal/db/dbtest"
)

const batch = `[
  {"item_id": 1001, "item_name": "Kaos", "item_sku": "K-1", "price": 15000.50, "stock": 5},
  {"item_id": "1002", "item_name": "Celana", "price": "99000"},
  "garbage",
  {"item_id": 1004},
  {"item_id": 1005, "item_name": "Jaket", "price": 250000, "stock": 2}
]`

func entry(t *testing.T, js string) map[string]any {
	t.Helper()
	e, err := DecodeEntry(json.RawMessage(js))
	require.NoError(t, err, js)
	return e
}

func TestToProductDefaults(t *testing.T) {
	p, err := ToProduct(entry(t, `{"item_id": 1004}`))
	require.NoError(t, err)
	assert.Equal(t, "1004", p.ItemID)
	assert.Equal(t, "", p.ItemName)
	assert.Equal(t, "", p.ItemSKU)
	assert.True(t, p.Price.Equal(decimal.Zero))
	assert.Equal(t, int64(0), p.Stock)
}

func TestToProductKeepsDecimalPrecision(t *testing.T) {
	p, err := ToProduct(entry(t, `{"item_id": 123456789012, "price": 15000.555, "stock": "3"}`))
	require.NoError(t, err)
	assert.Equal(t, "123456789012", p.ItemID)
	assert.Equal(t, "15000.56", p.Price.StringFixed(2))
	assert.Equal(t, int64(3), p.Stock)
}

func TestToProductRejects(t *testing.T) {
	cases := map[string]string{
		"missing id":     `{"item_name": "x"}`,
		"empty id":       `{"item_id": " "}`,
		"bad price":      `{"item_id": 1, "price": "abc"}`,
		"negative price": `{"item_id": 1, "price": -5}`,
		"bad stock":      `{"item_id": 1, "stock": "many"}`,
		"object name":    `{"item_id": 1, "item_name": {"en": "x"}}`,
		"bool id":        `{"item_id": true}`,
		"bool price":     `{"item_id": 1, "price": true}`,
		"bool stock":     `{"item_id": 1, "stock": false}`,
		"array price":    `{"item_id": 1, "price": [1]}`,
		"huge price":     `{"item_id": 1, "price": 10000000000000}`,
		"fraction stock": `{"item_id": 1, "stock": 1.5}`,
		"negative stock": `{"item_id": 1, "stock": -1}`,
		"stock overflow": `{"item_id": 1, "stock": 2147483648}`,
	}
	for name, js := range cases {
		_, err := ToProduct(entry(t, js))
		assert.Error(t, err, name)
	}

	p, err := ToProduct(entry(t, `{"item_id": 1, "stock": 2147483647}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2147483647), p.Stock)
}

func TestDecodeEntryRejectsNonObjects(t *testing.T) {
	for _, js := range []string{`"garbage"`, `42`, `null`, `true`, `[1]`, `{`} {
		_, err := DecodeEntry(json.RawMessage(js))
		assert.Error(t, err, js)
	}
}

func TestDecodeWrappedItems(t *testing.T) {
	items, err := Decode([]byte(`{"items": [{"item_id": 1}, {"item_id": 2}]}`))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestRunIsolatesFailures(t *testing.T) {
	items, err := Decode([]byte(batch))
	require.NoError(t, err)

	fake := dbtest.New()
	job := &Job{DB: fake, Table: "shopee_products", Timeout: time.Second, Log: zap.NewNop()}

	res, err := job.Run(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 4, res.Upserted)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Index)
	assert.Empty(t, res.Failures[0].ItemID)
	assert.Contains(t, res.Failures[0].Error, "not an object")

	ids := map[string]bool{}
	for _, r := range fake.Rows("shopee_products") {
		ids[r["item_id"].(string)] = true
	}
	assert.Equal(t, map[string]bool{"1001": true, "1002": true, "1004": true, "1005": true}, ids)
	assert.Equal(t, 1, fake.Closes)
}

func TestRunContinuesAfterStoreError(t *testing.T) {
	items, err := Decode([]byte(batch))
	require.NoError(t, err)

	fake := dbtest.New()
	fake.FailExec = func(sql string, args []any) error {
		if strings.HasPrefix(sql, "INSERT") && args[0] == "1002" {
			return errors.New("deadlock detected")
		}
		return nil
	}
	job := &Job{DB: fake, Table: "shopee_products", Timeout: time.Second}

	res, err := job.Run(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Upserted)
	assert.Len(t, res.Failures, 2)
	assert.Len(t, fake.Rows("shopee_products"), 3)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	items, err := Decode([]byte(batch))
	require.NoError(t, err)

	fake := dbtest.New()
	job := &Job{DB: fake, Table: "shopee_products", Timeout: time.Second}

	_, err = job.Run(context.Background(), items)
	require.NoError(t, err)
	first := byItem(fake.Rows("shopee_products"))

	_, err = job.Run(context.Background(), items)
	require.NoError(t, err)
	rows := fake.Rows("shopee_products")
	assert.Len(t, rows, 4)

	for id, r := range byItem(rows) {
		assert.Equal(t, first[id]["create_time"], r["create_time"], id)
		assert.True(t, r["update_time"].(time.Time).After(first[id]["update_time"].(time.Time)), id)
	}
}

func byItem(rows []dbtest.Row) map[string]dbtest.Row {
	out := map[string]dbtest.Row{}
	for _, r := range rows {
		out[r["item_id"].(string)] = r
	}
	return out
}

func TestRunFailsWhenSchemaCannotBeEnsured(t *testing.T) {
	fake := dbtest.New()
	fake.FailExec = func(sql string, args []any) error {
		if strings.HasPrefix(sql, "CREATE") {
			return errors.New("permission denied")
		}
		return nil
	}
	job := &Job{DB: fake, Table: "shopee_products", Timeout: time.Second}
	_, err := job.Run(context.Background(), []json.RawMessage{json.RawMessage(`{"item_id": "1"}`)})
	assert.Error(t, err)
	assert.Equal(t, 0, fake.Writes())
}

type fakeS3 struct {
	bucket, key string
	body        string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(f.body)))}, nil
}

func TestReadSource(t *testing.T) {
	s3c := &fakeS3{body: batch}
	b, err := ReadSource(context.Background(), "s3://catalogs/shopee/items.json", Readers{S3: s3c})
	require.NoError(t, err)
	assert.Equal(t, batch, string(b))
	assert.Equal(t, "catalogs", s3c.bucket)
	assert.Equal(t, "shopee/items.json", s3c.key)

	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(batch), 0o600))
	b, err = ReadSource(context.Background(), path, Readers{})
	require.NoError(t, err)
	assert.Equal(t, batch, string(b))

	_, err = ReadSource(context.Background(), "s3://bucket-only", Readers{S3: s3c})
	assert.Error(t, err)

	_, err = ReadSource(context.Background(), "s3://catalogs/items.json", Readers{})
	assert.Error(t, err)
}

type fakeShop struct {
	shopID string
	body   string
}

func (f *fakeShop) Read(ctx context.Context, shopID string) ([]byte, error) {
	f.shopID = shopID
	return []byte(f.body), nil
}

func TestReadSourceDispatchesShopee(t *testing.T) {
	shop := &fakeShop{body: batch}
	b, err := ReadSource(context.Background(), "shopee:555", Readers{Shopee: shop})
	require.NoError(t, err)
	assert.Equal(t, batch, string(b))
	assert.Equal(t, "555", shop.shopID)

	_, err = ReadSource(context.Background(), "shopee://", Readers{Shopee: shop})
	require.NoError(t, err)
	assert.Equal(t, "", shop.shopID)

	_, err = ReadSource(context.Background(), "shopee:", Readers{})
	assert.Error(t, err)
}
