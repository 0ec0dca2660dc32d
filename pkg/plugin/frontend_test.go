package plugin_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mld-platform/mld-sdk/pkg/plugin"
)

func TestFrontendConfig(t *testing.T) {
	cfg := plugin.FrontendConfig(newFake("rfa"))
	assert.Equal(t, map[string]any{
		"name":         "rfa",
		"version":      "1.0.0",
		"routePrefix":  "/rfa",
		"analysisType": "binding",
	}, cfg)
}

func TestMount(t *testing.T) {
	mux := http.NewServeMux()
	patterns := plugin.Mount(mux, newFake("rfa"))
	assert.Equal(t, []string{"/rfa/results/"}, patterns)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/rfa/results/42")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rfa:/42", string(body))

	resp2, err := http.Get(srv.URL + "/elisa/results/1")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)

	assert.Empty(t, plugin.Mount(mux, minimalPlugin{}))
}
