package shopee

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storelink/internal/apperr"
)

const (
	itemPageSize   = 100
	baseInfoChunk  = 50
	maxItemPages   = 200
	itemStatusLive = "NORMAL"
)

// Item is the catalog view of one Shopee listing.
type Item struct {
	ItemID   int64
	ItemName string
	ItemSKU  string
	Price    decimal.Decimal
	Stock    int64
}

type apiEnvelope struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Response  json.RawMessage `json:"response"`
}

type itemListResponse struct {
	Item []struct {
		ItemID int64 `json:"item_id"`
	} `json:"item"`
	HasNextPage bool `json:"has_next_page"`
	NextOffset  int  `json:"next_offset"`
}

type baseInfoResponse struct {
	ItemList []struct {
		ItemID    int64  `json:"item_id"`
		ItemName  string `json:"item_name"`
		ItemSKU   string `json:"item_sku"`
		PriceInfo []struct {
			CurrentPrice  decimal.Decimal `json:"current_price"`
			OriginalPrice decimal.Decimal `json:"original_price"`
		} `json:"price_info"`
		StockInfoV2 struct {
			SummaryInfo struct {
				TotalAvailableStock int64 `json:"total_available_stock"`
			} `json:"summary_info"`
		} `json:"stock_info_v2"`
	} `json:"item_list"`
}

// Items lists every live item of a shop with its base info. Item ids are
// paged from get_item_list, then resolved in chunks by get_item_base_info.
func (c *Client) Items(ctx context.Context, accessToken string, shopID int64) ([]Item, error) {
	if c.PartnerID == 0 || c.PartnerKey == "" {
		return nil, apperr.Internal("shopee item list", ErrMissingCredentials)
	}

	var ids []int64
	offset := 0
	for page := 0; page < maxItemPages; page++ {
		var list itemListResponse
		err := c.shopGet(ctx, ItemListPath, accessToken, shopID, url.Values{
			"offset":      {strconv.Itoa(offset)},
			"page_size":   {strconv.Itoa(itemPageSize)},
			"item_status": {itemStatusLive},
		}, &list)
		if err != nil {
			return nil, err
		}
		for _, it := range list.Item {
			ids = append(ids, it.ItemID)
		}
		if !list.HasNextPage || list.NextOffset <= offset {
			break
		}
		offset = list.NextOffset
	}

	items := make([]Item, 0, len(ids))
	for start := 0; start < len(ids); start += baseInfoChunk {
		end := min(start+baseInfoChunk, len(ids))
		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.FormatInt(id, 10))
		}

		var info baseInfoResponse
		err := c.shopGet(ctx, ItemBaseInfoPath, accessToken, shopID, url.Values{
			"item_id_list": {strings.Join(parts, ",")},
		}, &info)
		if err != nil {
			return nil, err
		}
		for _, bi := range info.ItemList {
			it := Item{
				ItemID:   bi.ItemID,
				ItemName: bi.ItemName,
				ItemSKU:  bi.ItemSKU,
				Stock:    bi.StockInfoV2.SummaryInfo.TotalAvailableStock,
			}
			if len(bi.PriceInfo) > 0 {
				it.Price = bi.PriceInfo[0].CurrentPrice
				if it.Price.IsZero() {
					it.Price = bi.PriceInfo[0].OriginalPrice
				}
			}
			items = append(items, it)
		}
	}
	return items, nil
}

func (c *Client) shopGet(ctx context.Context, path, accessToken string, shopID int64, params url.Values, out any) error {
	ts := c.now().Unix()
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("partner_id", strconv.FormatInt(c.PartnerID, 10))
	q.Set("shop_id", strconv.FormatInt(shopID, 10))
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("access_token", accessToken)
	q.Set("sign", SignShop(c.PartnerID, c.PartnerKey, path, ts, accessToken, shopID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Host+path+"?"+q.Encode(), nil)
	if err != nil {
		return apperr.Internal("build shopee request", err)
	}

	failMsg := "shopee " + path + " failed"
	raw, status, err := c.send(req)
	if err != nil {
		return apperr.UpstreamExchange(failMsg, "", err)
	}
	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("decode response (status %d): %w", status, err))
	}
	if env.Error != "" || len(env.Response) == 0 {
		return apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("shopee error %q: %s", env.Error, env.Message))
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return apperr.UpstreamExchange(failMsg, string(raw), fmt.Errorf("decode response body: %w", err))
	}
	return nil
}
