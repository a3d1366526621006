// Package sign computes and verifies keyed signatures over canonicalized
// field sets. The same codec signs gateway callbacks and admission
// credentials, with different secrets and field orders.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Codec signs an ordered field set with HMAC-SHA256. The field order is part
// of the protocol and must match the counterparty's documented order; fields
// not listed in the order are ignored, listed fields missing from the input
// sign as empty strings.
type Codec struct {
	secret     []byte
	fieldOrder []string
}

func NewCodec(secret string, fieldOrder []string) Codec {
	if secret == "" {
		panic("signing secret must be set")
	}
	if len(fieldOrder) == 0 {
		panic("field order must be set")
	}

	return Codec{
		secret:     []byte(secret),
		fieldOrder: fieldOrder,
	}
}

// Sign returns the standard-base64 HMAC-SHA256 digest of the canonical
// message built from fields.
func (c Codec) Sign(fields map[string]string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(c.message(fields)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares in constant time.
func (c Codec) Verify(fields map[string]string, signature string) bool {
	expected, err := base64.StdEncoding.DecodeString(c.Sign(fields))
	if err != nil {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

func (c Codec) message(fields map[string]string) string {
	pairs := make([]string, 0, len(c.fieldOrder))
	for _, key := range c.fieldOrder {
		pairs = append(pairs, key+"="+fields[key])
	}
	return strings.Join(pairs, "&")
}
