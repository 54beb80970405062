package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier(t *testing.T) {
	t.Parallel()

	t.Run("disabled without URL", func(t *testing.T) {
		t.Parallel()

		n := NewWebhookNotifier("")
		assert.False(t, n.IsEnabled())
		assert.NoError(t, n.Alert(context.Background(), SeverityCritical, "title", "desc", nil))
	})

	t.Run("posts embed payload", func(t *testing.T) {
		t.Parallel()

		var got webhookPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		n := NewWebhookNotifier(srv.URL)
		require.True(t, n.IsEnabled())

		err := n.Alert(context.Background(), SeverityWarning, "Margin drop", "tool repriced",
			map[string]string{"tool_id": "campaign_builder"})
		require.NoError(t, err)

		require.Len(t, got.Embeds, 1)
		assert.Equal(t, "Margin drop", got.Embeds[0].Title)
		assert.Equal(t, colorWarning, got.Embeds[0].Color)
		require.Len(t, got.Embeds[0].Fields, 1)
		assert.Equal(t, "campaign_builder", got.Embeds[0].Fields[0].Value)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		n := NewWebhookNotifier(srv.URL)
		assert.Error(t, n.Alert(context.Background(), SeverityInfo, "t", "d", nil))
	})
}
