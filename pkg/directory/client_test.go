package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/panchayaths", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Kuttiady","district":"Kozhikode"}]`))
	})
	mux.HandleFunc("/panchayaths/p1/wards", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"w1","panchayath_id":"p1","ward_number":"7"}]}`))
	})
	mux.HandleFunc("/agents", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("panchayath_id") == "broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"a1","name":"Ramesh","panchayath_id":"p1"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetchesDirectoryData(t *testing.T) {
	srv := newServer(t)
	client := NewClient(srv.URL+"/", "secret", time.Second)
	ctx := context.Background()

	panchayaths, err := client.Panchayaths(ctx)
	require.NoError(t, err)
	require.Len(t, panchayaths, 1)
	assert.Equal(t, "Kuttiady", panchayaths[0].Name)

	wards, err := client.Wards(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, wards, 1)
	assert.Equal(t, "7", wards[0].WardNumber)

	agents, err := client.Agents(ctx, "")
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "Ramesh", agents[0].Name)
}

func TestClientReportsUpstreamFailure(t *testing.T) {
	srv := newServer(t)
	client := NewClient(srv.URL, "secret", time.Second)

	_, err := client.Agents(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestClientRequiresBaseURL(t *testing.T) {
	client := NewClient("", "", 0)
	assert.False(t, client.Configured())
	_, err := client.Panchayaths(context.Background())
	require.Error(t, err)
}
