package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"boxoffice/entity"
)

// CallbackFieldOrder is the gateway's documented signing order. It is part of
// the wire protocol and must not be reordered.
var CallbackFieldOrder = []string{"transaction_ref", "status", "amount", "currency"}

const (
	fieldTransactionRef = "transaction_ref"
	fieldStatus         = "status"
	fieldAmount         = "amount"
	fieldCurrency       = "currency"
	fieldSignature      = "signature"
	fieldCorrelationID  = "correlation_id"
)

// CallbackPayload is what the gateway delivers: either one opaque encoded
// blob (base64 JSON object, the server-to-server shape) or a flat field set
// (the browser-redirect shape). Exactly one of the two is set.
type CallbackPayload struct {
	Encoded string
	Fields  map[string]string
}

// Normalize decodes either shape into the one canonical field map the rest of
// the pipeline works with. Missing required fields or an undecodable blob
// return entity.ErrMalformedCallback.
func (p CallbackPayload) Normalize() (map[string]string, error) {
	fields := p.Fields

	if p.Encoded != "" {
		raw, err := base64.StdEncoding.DecodeString(p.Encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable blob", entity.ErrMalformedCallback)
		}
		fields = map[string]string{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: blob is not a field object", entity.ErrMalformedCallback)
		}
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty payload", entity.ErrMalformedCallback)
	}

	for _, required := range []string{fieldTransactionRef, fieldStatus, fieldAmount, fieldSignature} {
		if fields[required] == "" {
			return nil, fmt.Errorf("%w: missing %s", entity.ErrMalformedCallback, required)
		}
	}

	if _, err := strconv.ParseInt(fields[fieldAmount], 10, 64); err != nil {
		return nil, fmt.Errorf("%w: amount is not an integer", entity.ErrMalformedCallback)
	}

	return fields, nil
}

// Gateway statuses. COMPLETE is the only success; the listed failure statuses
// finalize the order as failed, anything else is recorded and left pending.
const (
	GatewayStatusComplete  = "COMPLETE"
	GatewayStatusFailed    = "FAILED"
	GatewayStatusCancelled = "CANCELLED"
	GatewayStatusDenied    = "DENIED"
	GatewayStatusExpired   = "EXPIRED"
)

func outcomeForGatewayStatus(status string) (entity.OrderStatus, bool) {
	switch status {
	case GatewayStatusComplete:
		return entity.OrderStatusPaid, true
	case GatewayStatusFailed, GatewayStatusCancelled, GatewayStatusDenied, GatewayStatusExpired:
		return entity.OrderStatusFailed, true
	default:
		return entity.OrderStatusPending, false
	}
}
