package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"boxoffice/entity"
	"boxoffice/payment"
)

type paymentCallbackResponse struct {
	Resolution  string `json:"resolution"`
	OrderID     string `json:"order_id,omitempty"`
	TicketCount int    `json:"ticket_count,omitempty"`
}

// PostPaymentCallback is the server-to-server notification endpoint. The
// gateway retries until it sees a 2xx, so every fully handled outcome
// (duplicates included) must be acked.
func (s Server) PostPaymentCallback(c echo.Context) error {
	payload, err := bindCallbackPayload(c)
	if err != nil {
		return err
	}

	result, err := s.paymentProcessor.Process(c.Request().Context(), payload)
	if err != nil {
		return paymentCallbackError(err)
	}

	return c.JSON(http.StatusOK, paymentCallbackResponse{
		Resolution:  string(result.Resolution),
		OrderID:     result.OrderID,
		TicketCount: result.TicketCount,
	})
}

// GetPaymentCallback handles the buyer's browser returning from the payment
// page. Same pipeline, but the response is a redirect to the result page when
// one is configured.
func (s Server) GetPaymentCallback(c echo.Context) error {
	fields := map[string]string{}
	for key, values := range c.QueryParams() {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	result, err := s.paymentProcessor.Process(c.Request().Context(), payment.CallbackPayload{Fields: fields})
	if err != nil {
		return paymentCallbackError(err)
	}

	if s.paymentResultURL != "" {
		return c.Redirect(http.StatusSeeOther,
			s.paymentResultURL+"?resolution="+url.QueryEscape(string(result.Resolution)))
	}

	return c.JSON(http.StatusOK, paymentCallbackResponse{
		Resolution:  string(result.Resolution),
		OrderID:     result.OrderID,
		TicketCount: result.TicketCount,
	})
}

func bindCallbackPayload(c echo.Context) (payment.CallbackPayload, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)

	if contentType == echo.MIMEApplicationForm {
		form, err := c.FormParams()
		if err != nil {
			return payment.CallbackPayload{}, echo.NewHTTPError(http.StatusBadRequest, "could not parse form")
		}

		fields := map[string]string{}
		for key, values := range form {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		return payment.CallbackPayload{Fields: fields}, nil
	}

	var body map[string]string
	if err := c.Bind(&body); err != nil {
		return payment.CallbackPayload{}, err
	}

	// a single "payload" key is the encoded-blob shape
	if encoded, ok := body["payload"]; ok && len(body) == 1 {
		return payment.CallbackPayload{Encoded: encoded}, nil
	}

	return payment.CallbackPayload{Fields: body}, nil
}

func paymentCallbackError(err error) error {
	switch {
	case errors.Is(err, entity.ErrMalformedCallback):
		return echo.NewHTTPError(http.StatusBadRequest, "malformed callback")
	case errors.Is(err, entity.ErrSignatureInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	case errors.Is(err, entity.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "unknown transaction reference")
	default:
		return err
	}
}
