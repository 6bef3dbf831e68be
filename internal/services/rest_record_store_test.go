package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sosrelay/internal/fanout"
)

func TestRestRecordStoreInsert(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/v1/alert_notifications", r.URL.Path)
		require.Equal(t, "service-key", r.Header.Get("apikey"))
		require.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		require.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	store, err := NewRestRecordStore(RestRecordConfig{URL: server.URL + "/", ServiceKey: "service-key"})
	require.NoError(t, err)

	notifiedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err = store.RecordAttempt(context.Background(), fanout.Record{
		AlertID:      "alert-1",
		ContactName:  "Ana",
		ContactPhone: "09170000001",
		Channel:      fanout.ChannelEmail,
		NotifiedAt:   notifiedAt,
	})
	require.NoError(t, err)
	require.Equal(t, "alert-1", captured["alert_id"])
	require.Equal(t, "Ana", captured["contact_name"])
	require.Equal(t, "email", captured["channel"])
	require.Equal(t, "2024-03-01T12:00:00Z", captured["notified_at"])
}

func TestRestRecordStoreInsertFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid key"}`))
	}))
	defer server.Close()

	store, err := NewRestRecordStore(RestRecordConfig{URL: server.URL, ServiceKey: "bad"})
	require.NoError(t, err)

	err = store.RecordAttempt(context.Background(), fanout.Record{AlertID: "alert-1", ContactName: "Ana", Channel: fanout.ChannelSMS})
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestRestRecordStoreListAndPurge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			require.Equal(t, "eq.alert-1", r.URL.Query().Get("alert_id"))
			require.Equal(t, "notified_at.asc", r.URL.Query().Get("order"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"r1","alert_id":"alert-1","contact_name":"Ana","contact_phone":"0917","channel":"sms","notified_at":"2024-03-01T12:00:00Z"}]`))
		case http.MethodDelete:
			require.Equal(t, "lt.2024-01-01T00:00:00Z", r.URL.Query().Get("notified_at"))
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	store, err := NewRestRecordStore(RestRecordConfig{URL: server.URL, ServiceKey: "service-key"})
	require.NoError(t, err)

	rows, err := store.ListForAlert(context.Background(), "alert-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Ana", rows[0].ContactName)

	_, err = store.PurgeOlderThan(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
}

func TestNewRestRecordStoreValidation(t *testing.T) {
	_, err := NewRestRecordStore(RestRecordConfig{ServiceKey: "k"})
	require.Error(t, err)
	_, err = NewRestRecordStore(RestRecordConfig{URL: "https://db.example.com"})
	require.Error(t, err)
}
