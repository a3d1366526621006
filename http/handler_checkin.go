package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"boxoffice/entity"
)

type postCheckInRequest struct {
	Credential string `json:"credential"`
	ActorID    string `json:"actor_id"`
}

type checkInResponse struct {
	TicketID        string    `json:"ticket_id"`
	EventID         string    `json:"event_id"`
	AlreadyAdmitted bool      `json:"already_admitted"`
	CheckedInAt     time.Time `json:"checked_in_at"`
	CheckedInBy     string    `json:"checked_in_by"`
}

func (s Server) PostCheckIn(c echo.Context) error {
	var request postCheckInRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.Credential == "" || request.ActorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "credential and actor_id are required")
	}

	result, err := s.admissionGate.CheckIn(c.Request().Context(), request.Credential, request.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidCredential):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid credential")
		case errors.Is(err, entity.ErrTicketNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "unknown ticket")
		case errors.Is(err, entity.ErrNotAuthorized):
			return echo.NewHTTPError(http.StatusForbidden, "not authorized to check in for this event")
		case errors.Is(err, entity.ErrTicketNotAdmissible):
			return echo.NewHTTPError(http.StatusConflict, "ticket is not admissible")
		case errors.Is(err, entity.ErrEventNotStarted):
			return echo.NewHTTPError(http.StatusConflict, "event has not started yet")
		default:
			return err
		}
	}

	return c.JSON(http.StatusOK, checkInResponse{
		TicketID:        result.Ticket.TicketID,
		EventID:         result.Ticket.EventID,
		AlreadyAdmitted: result.AlreadyAdmitted,
		CheckedInAt:     result.CheckedInAt,
		CheckedInBy:     result.CheckedInBy,
	})
}
