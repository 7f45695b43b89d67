package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_None(t *testing.T) {
	for _, exporter := range []string{"", ExporterNone} {
		shutdown, err := Setup(context.Background(), Options{Exporter: exporter})
		require.NoError(t, err)
		require.NotNil(t, shutdown)
		require.NoError(t, shutdown(context.Background()))
	}
}

func TestSetup_Stdout(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{Exporter: ExporterStdout, ServiceVersion: "test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_OTLPDoesNotDial(t *testing.T) {
	// Exporters connect lazily, so construction succeeds without a collector.
	for _, exporter := range []string{ExporterOTLPGRPC, ExporterOTLPHTTP} {
		t.Run(exporter, func(t *testing.T) {
			shutdown, err := Setup(context.Background(), Options{Exporter: exporter, Endpoint: "localhost:4317"})
			require.NoError(t, err)
			require.NotNil(t, shutdown)
		})
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Options{Exporter: "zipkin"})
	require.ErrorContains(t, err, "unknown telemetry exporter")
}

func TestHTTPClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := HTTPClient().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestTransport_WrapsBase(t *testing.T) {
	t.Parallel()

	require.NotNil(t, Transport(nil))
	require.NotNil(t, Transport(&http.Transport{}))
}
