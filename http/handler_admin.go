package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"boxoffice/entity"
)

type postEventsRequest struct {
	Name     string    `json:"name"`
	Venue    string    `json:"venue"`
	StartsAt time.Time `json:"starts_at"`
	Currency string    `json:"currency"`
}

type postEventsResponse struct {
	EventID string `json:"event_id"`
}

func (s Server) PostEvents(c echo.Context) error {
	var request postEventsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.Name == "" || request.Currency == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and currency are required")
	}

	event := entity.Event{
		EventID:  uuid.NewString(),
		Name:     request.Name,
		Venue:    request.Venue,
		StartsAt: request.StartsAt.UTC(),
		Currency: request.Currency,
	}

	if err := s.eventsRepo.Store(c.Request().Context(), event); err != nil {
		return fmt.Errorf("could not store event: %w", err)
	}

	return c.JSON(http.StatusCreated, postEventsResponse{EventID: event.EventID})
}

func (s Server) GetEvent(c echo.Context) error {
	event, err := s.eventsRepo.Get(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "event not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, event)
}

type postTicketTypesRequest struct {
	EventID           string `json:"event_id"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"unit_price"`
	QuantityAvailable int    `json:"quantity_available"`
}

type postTicketTypesResponse struct {
	TicketTypeID string `json:"ticket_type_id"`
}

func (s Server) PostTicketTypes(c echo.Context) error {
	var request postTicketTypesRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.UnitPrice < 0 || request.QuantityAvailable < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "unit_price and quantity_available must not be negative")
	}

	if _, err := s.eventsRepo.Get(c.Request().Context(), request.EventID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown event")
		}
		return err
	}

	ticketType := entity.TicketType{
		TicketTypeID:      uuid.NewString(),
		EventID:           request.EventID,
		Name:              request.Name,
		UnitPrice:         request.UnitPrice,
		QuantityAvailable: request.QuantityAvailable,
	}

	if err := s.ticketTypesRepo.Add(c.Request().Context(), ticketType); err != nil {
		return fmt.Errorf("could not store ticket type: %w", err)
	}

	return c.JSON(http.StatusCreated, postTicketTypesResponse{TicketTypeID: ticketType.TicketTypeID})
}

func (s Server) GetEventTicketTypes(c echo.Context) error {
	ticketTypes, err := s.ticketTypesRepo.FindByEvent(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ticketTypes)
}
