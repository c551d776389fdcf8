package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Question string `json:"question" validate:"required,max=5"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Question: "abc"}))

	err := ValidateRequest(sampleRequest{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"question": "required"}, vErr.Fields)

	err = ValidateRequest(sampleRequest{Question: "beaucoup trop long"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "validation failed: question: max", vErr.Error())
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/validation", func(c *fiber.Ctx) error { return ValidateRequest(sampleRequest{}) })
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.ErrUpgradeRequired })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.JSON(SuccessResponse("fine", 1)) })

	tests := []struct {
		path       string
		wantStatus int
		wantMsg    string
	}{
		{"/validation", 400, "validation failed: question: required"},
		{"/fiber", 426, "Upgrade Required"},
		{"/plain", 500, "boom"},
		{"/ok", 200, "fine"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var res BaseResponse[any]
			require.NoError(t, json.Unmarshal(body, &res))
			assert.Equal(t, tt.wantMsg, res.Message)
			assert.Equal(t, tt.wantStatus == 200, res.Success)
		})
	}
}
