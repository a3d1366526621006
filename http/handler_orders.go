package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"boxoffice/entity"
)

type postOrdersRequest struct {
	BuyerID  string                 `json:"buyer_id"`
	EventID  string                 `json:"event_id"`
	Items    []postOrderItemRequest `json:"items"`
	Metadata map[string]string      `json:"metadata"`
}

type postOrderItemRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

type postOrdersResponse struct {
	OrderID        string `json:"order_id"`
	TransactionRef string `json:"transaction_ref"`
	TotalAmount    int64  `json:"total_amount"`
	Currency       string `json:"currency"`
}

// PostOrders creates a pending order. Prices come from the stored ticket
// types, never from the request. No inventory is reserved here; inventory
// commits when the payment callback finalizes the order.
func (s Server) PostOrders(c echo.Context) error {
	var request postOrdersRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if len(request.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "order must have at least one item")
	}

	ctx := c.Request().Context()

	event, err := s.eventsRepo.Get(ctx, request.EventID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown event")
		}
		return err
	}

	items := make([]entity.LineItem, 0, len(request.Items))
	for _, item := range request.Items {
		ticketType, err := s.ticketTypesRepo.Get(ctx, item.TicketTypeID)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				return echo.NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("unknown ticket type %s", item.TicketTypeID))
			}
			return err
		}
		if ticketType.EventID != event.EventID {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("ticket type %s does not belong to event %s", item.TicketTypeID, event.EventID))
		}

		items = append(items, entity.LineItem{
			TicketTypeID: ticketType.TicketTypeID,
			UnitPrice:    ticketType.UnitPrice,
			Quantity:     item.Quantity,
		})
	}

	var metadata []byte
	if len(request.Metadata) > 0 {
		metadata, err = marshalMetadata(request.Metadata)
		if err != nil {
			return err
		}
	}

	order, err := entity.NewOrder(request.BuyerID, event.EventID, event.Currency, items, metadata)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := s.ordersRepo.Add(ctx, order); err != nil {
		return fmt.Errorf("could not store order: %w", err)
	}

	return c.JSON(http.StatusCreated, postOrdersResponse{
		OrderID:        order.OrderID,
		TransactionRef: order.TransactionRef,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
	})
}

func (s Server) GetOrder(c echo.Context) error {
	order, err := s.ordersRepo.Get(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, order)
}

func (s Server) GetOrderTickets(c echo.Context) error {
	tickets, err := s.ticketsRepo.FindByOrder(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tickets)
}

// PutOrderRefund hands the refund to the command handler; approval happened
// upstream. Accepted means enqueued, not refunded.
func (s Server) PutOrderRefund(c echo.Context) error {
	orderID := c.Param("order_id")

	command := entity.RefundOrder{
		Header:  entity.NewEventHeaderWithIdempotencyKey("refund-" + orderID),
		OrderID: orderID,
	}

	if err := s.commandBus.Send(c.Request().Context(), command); err != nil {
		return fmt.Errorf("could not send refund command: %w", err)
	}

	return c.NoContent(http.StatusAccepted)
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("could not marshal order metadata: %w", err)
	}
	return raw, nil
}
