package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	// Observations after double Init must not panic.
	ObserveNotePersisted("high")
	ObserveNoteSkipped("duplicate")
	ObserveKeywordDone()
	ObserveBlocked()
	ObserveBreakerTrip()
	ObserveSinkError()
	ObserveDelay("detail", 12*time.Second)
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	ObserveNotePersisted("top")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "crawler_notes_persisted_total")
}
