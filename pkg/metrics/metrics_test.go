package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew_PrivateRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.QueriesTotal.WithLabelValues("boolean", "ok").Inc()
	m.QueriesTotal.WithLabelValues("boolean", "ok").Inc()
	m.LoadedDocuments.Set(42)

	body := scrape(t, m)
	assert.Contains(t, body, `docsearch_queries_total{mode="boolean",outcome="ok"} 2`)
	assert.Contains(t, body, `docsearch_loaded_documents 42`)

	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestHandler_ServesRegisteredCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ModelReloads.WithLabelValues("http", "ok").Inc()

	assert.Contains(t, scrape(t, m), `docsearch_model_reloads_total{status="ok",trigger="http"} 1`)
}
