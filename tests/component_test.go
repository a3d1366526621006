package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"boxoffice/entity"
	"boxoffice/gate"
	"boxoffice/gateway"
	"boxoffice/payment"
	"boxoffice/service"
	"boxoffice/sign"
)

const (
	httpAddress    = ":8080"
	baseURL        = "http://localhost:8080"
	callbackSecret = "component-callback-secret"
)

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbconn, err := sqlx.Open("postgres", postgresURL)
	require.NoError(t, err)
	defer dbconn.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
	defer redisClient.Close()

	notificationMock := &gateway.NotificationMock{}
	authorizationMock := &gateway.AuthorizationMock{
		DeniedActors: map[string]bool{"random-person": true},
	}

	done := make(chan struct{})
	go func() {
		<-done
		e := syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		require.NoError(t, e)
	}()

	finished := make(chan struct{})
	go func() {
		svc := service.New(
			service.Config{
				HTTPAddr:        httpAddress,
				CallbackSecret:  callbackSecret,
				AdmissionSecret: "component-admission-secret",
				Gate:            gate.Config{},
			},
			dbconn,
			redisClient,
			notificationMock,
			authorizationMock,
		)
		assert.NoError(t, svc.Run(ctx))
		close(finished)
	}()

	defer func() {
		close(done)
		<-finished
	}()

	waitForHttpServer(t)

	eventID := createEvent(t)
	vipTypeID := createTicketType(t, eventID, "VIP", 500, 10)
	gaTypeID := createTicketType(t, eventID, "GA", 100, 10)

	order := createOrder(t, eventID, []orderItem{
		{TicketTypeID: vipTypeID, Quantity: 1},
		{TicketTypeID: gaTypeID, Quantity: 2},
	})
	require.Equal(t, int64(700), order.TotalAmount)

	// the gateway retries; every delivery past the first must be a no-op
	for i := 0; i < 3; i++ {
		resolution := sendPaymentCallback(t, order, "COMPLETE", order.TotalAmount)
		if i == 0 {
			assert.Equal(t, "paid", resolution)
		} else {
			assert.Equal(t, "duplicate", resolution)
		}
	}

	assertOrderStatus(t, order.OrderID, "paid")

	tickets := getOrderTickets(t, order.OrderID)
	require.Len(t, tickets, 3)

	assertEventAggregates(t, eventID, 3, 700)
	assertBuyerNotified(t, notificationMock, order.OrderID, 3)

	// a tampered callback must change nothing
	tampered := createOrder(t, eventID, []orderItem{{TicketTypeID: gaTypeID, Quantity: 1}})
	sendTamperedCallback(t, tampered)
	assertOrderStatus(t, tampered.OrderID, "pending")

	// door scan: first admits, re-scan reports the original admission
	credential := tickets[0].Credential

	first := sendCheckIn(t, credential, "staff-1", http.StatusOK)
	assert.False(t, first.AlreadyAdmitted)
	assert.Equal(t, "staff-1", first.CheckedInBy)

	second := sendCheckIn(t, credential, "staff-2", http.StatusOK)
	assert.True(t, second.AlreadyAdmitted)
	assert.Equal(t, "staff-1", second.CheckedInBy)
	assert.Equal(t, first.CheckedInAt.Unix(), second.CheckedInAt.Unix())

	sendCheckInExpectingError(t, tickets[1].Credential, "random-person", http.StatusForbidden)

	// refund releases inventory and rolls back the aggregates
	refundOrder(t, order.OrderID)
	assertOrderStatus(t, order.OrderID, "refunded")
	assertEventAggregates(t, eventID, 0, 0)
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode) {
				return
			}
		},
		time.Second*10,
		time.Millisecond*50,
	)
}

type orderItem struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

type orderResponse struct {
	OrderID        string `json:"order_id"`
	TransactionRef string `json:"transaction_ref"`
	TotalAmount    int64  `json:"total_amount"`
	Currency       string `json:"currency"`
}

func createEvent(t *testing.T) string {
	t.Helper()

	var response struct {
		EventID string `json:"event_id"`
	}
	postJSON(t, "/events", map[string]any{
		"name":      "Component Fest",
		"venue":     "Main Hall",
		"starts_at": time.Now().UTC().Add(24 * time.Hour),
		"currency":  "USD",
	}, http.StatusCreated, &response)

	return response.EventID
}

func createTicketType(t *testing.T, eventID, name string, unitPrice int64, quantity int) string {
	t.Helper()

	var response struct {
		TicketTypeID string `json:"ticket_type_id"`
	}
	postJSON(t, "/ticket-types", map[string]any{
		"event_id":           eventID,
		"name":               name,
		"unit_price":         unitPrice,
		"quantity_available": quantity,
	}, http.StatusCreated, &response)

	return response.TicketTypeID
}

func createOrder(t *testing.T, eventID string, items []orderItem) orderResponse {
	t.Helper()

	var response orderResponse
	postJSON(t, "/orders", map[string]any{
		"buyer_id": "buyer-1",
		"event_id": eventID,
		"items":    items,
	}, http.StatusCreated, &response)

	return response
}

func sendPaymentCallback(t *testing.T, order orderResponse, status string, amount int64) string {
	t.Helper()

	codec := sign.NewCodec(callbackSecret, payment.CallbackFieldOrder)
	fields := map[string]string{
		"transaction_ref": order.TransactionRef,
		"status":          status,
		"amount":          strconv.FormatInt(amount, 10),
		"currency":        order.Currency,
	}
	fields["signature"] = codec.Sign(fields)

	var response struct {
		Resolution string `json:"resolution"`
	}
	postJSON(t, "/payments/callback", fields, http.StatusOK, &response)

	return response.Resolution
}

func sendTamperedCallback(t *testing.T, order orderResponse) {
	t.Helper()

	codec := sign.NewCodec(callbackSecret, payment.CallbackFieldOrder)
	fields := map[string]string{
		"transaction_ref": order.TransactionRef,
		"status":          "COMPLETE",
		"amount":          strconv.FormatInt(order.TotalAmount, 10),
		"currency":        order.Currency,
	}
	fields["signature"] = codec.Sign(fields)
	fields["amount"] = "1"

	payload, err := json.Marshal(fields)
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/payments/callback", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type checkInResponse struct {
	TicketID        string    `json:"ticket_id"`
	EventID         string    `json:"event_id"`
	AlreadyAdmitted bool      `json:"already_admitted"`
	CheckedInAt     time.Time `json:"checked_in_at"`
	CheckedInBy     string    `json:"checked_in_by"`
}

func sendCheckIn(t *testing.T, credential, actorID string, expectedStatus int) checkInResponse {
	t.Helper()

	var response checkInResponse
	postJSON(t, "/check-ins", map[string]string{
		"credential": credential,
		"actor_id":   actorID,
	}, expectedStatus, &response)

	return response
}

func sendCheckInExpectingError(t *testing.T, credential, actorID string, expectedStatus int) {
	t.Helper()

	payload, err := json.Marshal(map[string]string{
		"credential": credential,
		"actor_id":   actorID,
	})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/check-ins", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, expectedStatus, resp.StatusCode)
}

func refundOrder(t *testing.T, orderID string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, baseURL+"/orders/"+orderID+"/refund", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func getOrderTickets(t *testing.T, orderID string) []entity.Ticket {
	t.Helper()

	var tickets []entity.Ticket
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/orders/" + orderID + "/tickets")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
			return false
		}
		return len(tickets) > 0
	}, 10*time.Second, 100*time.Millisecond)

	return tickets
}

func assertOrderStatus(t *testing.T, orderID, expected string) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/orders/" + orderID)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			var order entity.Order
			if !assert.NoError(t, json.NewDecoder(resp.Body).Decode(&order)) {
				return
			}

			assert.Equal(t, expected, string(order.Status))
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func assertEventAggregates(t *testing.T, eventID string, soldTickets int, totalRevenue int64) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/events/" + eventID)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			var event entity.Event
			if !assert.NoError(t, json.NewDecoder(resp.Body).Decode(&event)) {
				return
			}

			assert.Equal(t, soldTickets, event.SoldTickets)
			assert.Equal(t, totalRevenue, event.TotalRevenue)
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func assertBuyerNotified(t *testing.T, notificationMock *gateway.NotificationMock, orderID string, ticketCount int) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			for _, notification := range notificationMock.Notifications {
				if notification.OrderID == orderID {
					assert.Equal(t, ticketCount, notification.TicketCount)
					return
				}
			}
			assert.Fail(t, fmt.Sprintf("no notification for order %s yet", orderID))
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func postJSON(t *testing.T, path string, body any, expectedStatus int, response any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, expectedStatus, resp.StatusCode)

	if response != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(response))
	}
}
