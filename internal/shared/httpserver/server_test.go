package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HealthAndMetrics(t *testing.T) {
	s := NewServer()

	resp, err := s.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(body))

	resp, err = s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errkind.New(errkind.ErrNotFound, "x"), fiber.StatusNotFound},
		{errkind.New(errkind.ErrInvalidArgument, "x"), fiber.StatusBadRequest},
		{errkind.New(errkind.ErrStateConflict, "x"), fiber.StatusConflict},
		{errkind.New(errkind.ErrValueTooLow, "x"), fiber.StatusUnprocessableEntity},
		{errkind.Transfer(errors.New("x")), fiber.StatusPaymentRequired},
		{errkind.New(errkind.ErrUnavailable, "x"), fiber.StatusServiceUnavailable},
		{errors.New("x"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(fmt.Errorf("wrapped: %w", tc.err)), tc.err.Error())
	}
}

func TestWriteError(t *testing.T) {
	s := NewServer()
	s.API().Get("/boom", func(c *fiber.Ctx) error {
		return WriteError(c, fmt.Errorf("end auction 1: %w", errkind.New(errkind.ErrStateConflict, "auction already settled")))
	})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/v1/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "end auction 1: auction already settled", body.Error)
	assert.Equal(t, "state conflict", body.Kind)
}
