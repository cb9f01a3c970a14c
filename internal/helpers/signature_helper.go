package helpers

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// PayHere signs its notify callbacks with
// md5sig = UPPER(MD5(merchant_id + order_id + amount + currency + status_code + UPPER(MD5(secret)))).
// The scheme is fixed by the gateway.

func md5Upper(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func GeneratePayHereSig(merchantID, orderID, amount, currency, statusCode, merchantSecret string) string {
	return md5Upper(merchantID + orderID + amount + currency + statusCode + md5Upper(merchantSecret))
}

func VerifyPayHereSig(merchantID, orderID, amount, currency, statusCode, merchantSecret, md5sig string) bool {
	expected := GeneratePayHereSig(merchantID, orderID, amount, currency, statusCode, merchantSecret)
	return hmac.Equal([]byte(expected), []byte(strings.ToUpper(md5sig)))
}
