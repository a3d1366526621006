package sign

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"boxoffice/entity"
)

// AdmissionFieldOrder is the canonical signing order for admission
// credentials. Issuance and verification must agree on it byte for byte.
var AdmissionFieldOrder = []string{"ticket_id", "event_id", "attendee_id", "order_id", "issued_at"}

// AdmissionPayload is the signed record a ticket holder presents at the door.
type AdmissionPayload struct {
	TicketID   string    `json:"ticket_id"`
	EventID    string    `json:"event_id"`
	AttendeeID string    `json:"attendee_id"`
	OrderID    string    `json:"order_id"`
	IssuedAt   time.Time `json:"issued_at"`
	Signature  string    `json:"signature"`
}

func (p AdmissionPayload) fields() map[string]string {
	return map[string]string{
		"ticket_id":   p.TicketID,
		"event_id":    p.EventID,
		"attendee_id": p.AttendeeID,
		"order_id":    p.OrderID,
		// RFC3339 in UTC, so both sides serialize the timestamp identically.
		"issued_at": p.IssuedAt.UTC().Format(time.RFC3339),
	}
}

// EncodeAdmission signs the payload and returns the credential string
// (base64url JSON) that gets rendered as a scannable code.
func EncodeAdmission(codec Codec, payload AdmissionPayload) (string, error) {
	payload.IssuedAt = payload.IssuedAt.UTC().Truncate(time.Second)
	payload.Signature = codec.Sign(payload.fields())

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(raw), nil
}

// DecodeAdmission decodes a scanned credential and verifies its signature.
func DecodeAdmission(codec Codec, credential string) (AdmissionPayload, error) {
	raw, err := base64.URLEncoding.DecodeString(credential)
	if err != nil {
		return AdmissionPayload{}, entity.ErrInvalidCredential
	}

	var payload AdmissionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return AdmissionPayload{}, entity.ErrInvalidCredential
	}

	if !codec.Verify(payload.fields(), payload.Signature) {
		return AdmissionPayload{}, entity.ErrInvalidCredential
	}

	return payload, nil
}

// CredentialHash is the stored lookup key for a credential: hex SHA-256 of
// the encoded credential string.
func CredentialHash(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
