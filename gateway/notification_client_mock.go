package gateway

import (
	"context"
	"sync"

	"boxoffice/entity"
)

type NotificationMock struct {
	mock sync.Mutex

	Notifications []entity.OrderNotification
}

func (c *NotificationMock) NotifyOrderPaid(ctx context.Context, notification entity.OrderNotification) error {
	c.mock.Lock()
	defer c.mock.Unlock()

	c.Notifications = append(c.Notifications, notification)

	return nil
}
