package newsletter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/newsletter"
)

func TestSubscribe(t *testing.T) {
	var got map[string]string
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newsletter.NewClient(srv.URL, "list-1", "key-123")
	require.True(t, c.Enabled())
	require.NoError(t, c.Subscribe(context.Background(), "a@example.com", "footer"))

	assert.Equal(t, "Bearer key-123", auth)
	assert.Equal(t, map[string]string{"email": "a@example.com", "listId": "list-1", "source": "footer"}, got)
}

func TestSubscribe_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := newsletter.NewClient(srv.URL, "", "").Subscribe(context.Background(), "a@example.com", "")
	var se *newsletter.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "quota exceeded", se.Body)
}

func TestSubscribe_Disabled(t *testing.T) {
	c := newsletter.NewClient("", "", "")
	assert.False(t, c.Enabled())
	assert.Error(t, c.Subscribe(context.Background(), "a@example.com", ""))
}
