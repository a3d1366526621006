// Package gateway holds clients for the external collaborators: the
// notification service and the staff authorization service. Each client has a
// mock counterpart used in component tests.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"boxoffice/entity"
)

type NotificationClient struct {
	client *resty.Client
}

func NewNotificationClient(baseURL string) NotificationClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport))

	return NotificationClient{client: client}
}

func (c NotificationClient) NotifyOrderPaid(ctx context.Context, notification entity.OrderNotification) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(notification).
		Post("/notifications")
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("unexpected status code for POST /notifications: %d", resp.StatusCode())
	}

	return nil
}
