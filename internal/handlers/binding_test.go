package handlers

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		key         string
		body        string
		expected    ApplyPaymentRequest
		expectError bool
	}{
		{
			name:     "nested payload",
			key:      "payment",
			body:     `{"payment": {"amount": 150.5, "method": "cash"}}`,
			expected: ApplyPaymentRequest{Amount: 150.5, Method: "cash"},
		},
		{
			name:     "flat payload",
			key:      "payment",
			body:     `{"amount": 80, "method": "transfer", "payment_date": "2024-03-01"}`,
			expected: ApplyPaymentRequest{Amount: 80, Method: "transfer", PaymentDate: "2024-03-01"},
		},
		{
			name:     "other envelope keys fall back to flat",
			key:      "payment",
			body:     `{"sale": 3, "amount": 20, "method": "card"}`,
			expected: ApplyPaymentRequest{Amount: 20, Method: "card"},
		},
		{
			name:        "wrong type in flat payload",
			key:         "payment",
			body:        `{"amount": "cien"}`,
			expectError: true,
		},
		{
			name:        "wrong type in nested payload",
			key:         "payment",
			body:        `{"payment": {"amount": "cien"}}`,
			expectError: true,
		},
		{
			name:        "envelope holding a string",
			key:         "payment",
			body:        `{"payment": "cash"}`,
			expectError: true,
		},
		{
			name:        "empty body",
			key:         "payment",
			body:        "  ",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result ApplyPaymentRequest
			err := BindNestedOrFlat(c, tt.key, &result)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestBindNestedOrFlatRestoresBody(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"plan": {"model": "FRENCH"}}`
	c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(body))

	var req ApproveSaleRequest
	require.NoError(t, BindNestedOrFlat(c, "plan", &req))
	assert.Equal(t, "FRENCH", req.Model)

	rest, err := io.ReadAll(c.Request.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(rest))
}
