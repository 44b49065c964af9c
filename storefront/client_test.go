package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storefront-bot/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := New(config.StorefrontConfig{BaseURL: srv.URL + "/v1/", APIKey: "secret", ShopID: "42", RequestsPerSec: 1000}, nil, zap.NewNop())
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

type product struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestGetUnwrapsEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"enveloped", `{"data":[{"id":1,"name":"Key"}],"total":1}`},
		{"bare array", `[{"id":1,"name":"Key"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/shops/42/products", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
				_, _ = w.Write([]byte(tt.body))
			})

			var got []product
			require.NoError(t, c.Get(context.Background(), "products", nil, &got))
			assert.Equal(t, []product{{ID: 1, Name: "Key"}}, got)
		})
	}
}

func TestPostSendsJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":7,"name":"created"}}`))
	})

	var got product
	require.NoError(t, c.Post(context.Background(), "products", map[string]string{"name": "created"}, &got))
	assert.Equal(t, 7, got.ID)
}

func TestRetriesOnceOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	c, waits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"name":"ok"}`))
	})

	var got product
	require.NoError(t, c.Get(context.Background(), "products/1", nil, &got))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, *waits)
	assert.Empty(t, c.Errors())
}

func TestRateLimitTwiceFails(t *testing.T) {
	var calls atomic.Int32
	c, waits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	})

	err := c.Get(context.Background(), "products", nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "slow down", apiErr.Message)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{defaultRetryWait}, *waits)
}

func TestErrorLogIsBounded(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	for i := 0; i < maxErrorLog+5; i++ {
		_ = c.Put(context.Background(), "products/"+string(rune('a'+i%26)), map[string]int{"n": i}, nil)
	}
	log := c.Errors()
	assert.Len(t, log, maxErrorLog)
	assert.Equal(t, "boom", log[0].Message)
	assert.Equal(t, http.StatusInternalServerError, log[len(log)-1].Status)
	assert.Equal(t, "products/f", log[0].Path)
}

func TestInvoiceExists(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/shops/42/invoices/inv-1" {
			_, _ = w.Write([]byte(`{"data":{"id":"inv-1"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ok, err := c.InvoiceExists(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.InvoiceExists(context.Background(), "inv-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
}
