// Package shopee signs and sends Shopee Open Platform partner requests.
package shopee

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Sign computes the partner-level signature used by the auth endpoints:
// hex(HMAC-SHA256(partnerKey, partnerID + path + timestamp)).
func Sign(partnerID int64, partnerKey, path string, timestamp int64) string {
	return hmacHex(partnerKey, strconv.FormatInt(partnerID, 10)+path+strconv.FormatInt(timestamp, 10))
}

// SignShop computes the shop-level signature used by shop APIs:
// partnerID + path + timestamp + accessToken + shopID.
func SignShop(partnerID int64, partnerKey, path string, timestamp int64, accessToken string, shopID int64) string {
	base := strconv.FormatInt(partnerID, 10) + path + strconv.FormatInt(timestamp, 10) +
		accessToken + strconv.FormatInt(shopID, 10)
	return hmacHex(partnerKey, base)
}

func hmacHex(key, base string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}
