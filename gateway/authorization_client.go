package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type AuthorizationClient struct {
	client *resty.Client
}

func NewAuthorizationClient(baseURL string) AuthorizationClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport))

	return AuthorizationClient{client: client}
}

type checkInAuthorizationRequest struct {
	ActorID string `json:"actor_id"`
	EventID string `json:"event_id"`
}

type checkInAuthorizationResponse struct {
	Authorized bool `json:"authorized"`
}

// IsAuthorizedToCheckIn asks the staff service whether actorID may admit
// attendees for eventID. Roles and event assignments live entirely in that
// service.
func (c AuthorizationClient) IsAuthorizedToCheckIn(ctx context.Context, actorID, eventID string) (bool, error) {
	var result checkInAuthorizationResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(checkInAuthorizationRequest{ActorID: actorID, EventID: eventID}).
		SetResult(&result).
		Post("/authorizations/check-in")
	if err != nil {
		return false, fmt.Errorf("failed to check authorization: %w", err)
	}

	if resp.IsError() {
		return false, fmt.Errorf("unexpected status code for POST /authorizations/check-in: %d", resp.StatusCode())
	}

	return result.Authorized, nil
}
