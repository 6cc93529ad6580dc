// Package catalog imports a product list into the products table.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the part of the S3 client used to fetch a catalog file.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ShopReader produces a catalog document from a live shop. shopID may be
// empty to mean the most recently authorized shop.
type ShopReader interface {
	Read(ctx context.Context, shopID string) ([]byte, error)
}

// Readers holds the optional backends ReadSource can dispatch to.
type Readers struct {
	S3     ObjectGetter
	Shopee ShopReader
}

const shopeeScheme = "shopee:"

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// ParseShopeeSource reports whether source names the live Shopee catalog,
// written "shopee:" or "shopee:<shop_id>".
func ParseShopeeSource(source string) (shopID string, ok bool) {
	rest, found := strings.CutPrefix(source, shopeeScheme)
	if !found {
		return "", false
	}
	return strings.TrimPrefix(rest, "//"), true
}

// ReadSource reads the whole catalog from a local path, an s3:// URI or the
// live Shopee shop.
func ReadSource(ctx context.Context, source string, r Readers) ([]byte, error) {
	if shopID, ok := ParseShopeeSource(source); ok {
		if r.Shopee == nil {
			return nil, errors.New("no shopee reader configured")
		}
		return r.Shopee.Read(ctx, shopID)
	}
	if bucket, key, ok := ParseS3URI(source); ok {
		if r.S3 == nil {
			return nil, fmt.Errorf("no s3 client for %s", source)
		}
		out, err := r.S3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", source, err)
		}
		defer out.Body.Close()
		return io.ReadAll(out.Body)
	}
	if strings.HasPrefix(source, "s3://") {
		return nil, fmt.Errorf("malformed s3 uri %q", source)
	}
	b, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return b, nil
}

// Decode splits a JSON array of entries, or an object with an "items" array,
// into raw entries. Entries are not interpreted here so one malformed entry
// cannot reject its neighbours.
func Decode(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		return wrapped.Items, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return items, nil
}

// DecodeEntry decodes one entry. Numbers stay json.Number so prices are not
// rounded through float64.
func DecodeEntry(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("entry is %s, not an object", jsonKind(v))
	}
	return m, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	}
	return fmt.Sprintf("%T", v)
}
