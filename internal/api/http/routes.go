package httpapi

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/weatherhist/wwo-history/internal/export"
	"github.com/weatherhist/wwo-history/internal/store"
	"github.com/weatherhist/wwo-history/internal/weather"
)

var validate = validator.New()

// Attributer is the optional provider capability of discovering the attribute
// list the upstream API currently exposes.
type Attributer interface {
	Attributes(ctx context.Context) ([]string, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. The timeout
// bounds each outbound retrieval triggered by a request.
func RegisterRoutes(app *fiber.App, service *weather.Service, attrs Attributer, timeout time.Duration) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		r, err := weather.NewDateRange(req.Start, req.End)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()

		table, err := service.Retrieve(ctx, req.City, r, req.Frequency)
		if err != nil {
			return retrievalError(err)
		}

		if req.Format == "csv" {
			var buf bytes.Buffer
			if err := export.WriteTable(&buf, table); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to serialize weather history")
			}
			c.Set(fiber.HeaderContentType, "text/csv")
			return c.Send(buf.Bytes())
		}
		return c.JSON(table)
	})

	v1.Get("/weather/history/latest", func(c *fiber.Ctx) error {
		city := c.Query("city")
		if city == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city query parameter is required")
		}

		table, err := service.Latest(city)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}
		return c.JSON(table)
	})

	v1.Get("/weather/attributes", func(c *fiber.Ctx) error {
		if attrs == nil {
			return fiber.NewError(fiber.StatusNotFound, "attribute discovery is not available")
		}

		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()

		list, err := attrs.Attributes(ctx)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to discover attributes")
		}
		return c.JSON(fiber.Map{"attributes": list})
	})
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	City      string `validate:"required"`
	Start     string `validate:"required"`
	End       string `validate:"required"`
	Frequency int    `validate:"oneof=1 3 6 12"`
	Format    string `validate:"omitempty,oneof=json csv"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.City = c.Query("city")
	h.Start = c.Query("start")
	h.End = c.Query("end")
	h.Format = c.Query("format")

	freqStr := c.Query("frequency")
	if freqStr == "" {
		return errors.New("frequency query parameter is required")
	}
	freq, err := strconv.Atoi(freqStr)
	if err != nil {
		return errors.New("frequency must be an integer number of hours")
	}
	h.Frequency = freq
	return nil
}

// retrievalError maps pipeline errors onto HTTP statuses: caller mistakes are
// 400, upstream and data defects are 502.
func retrievalError(err error) error {
	var (
		fetchErr     *weather.FetchError
		malformedErr *weather.MalformedRecordError
		dupErr       *weather.DuplicateTimestampError
	)
	switch {
	case errors.Is(err, weather.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &fetchErr), errors.As(err, &malformedErr), errors.As(err, &dupErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to retrieve weather history")
	}
}
