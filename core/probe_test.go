package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeAPIVersion = "1.44"

// newFakeDaemon starts an HTTP server impersonating the docker engine API and
// returns a probe connected to it.
func newFakeDaemon(t *testing.T, handler http.HandlerFunc) (*DockerProbe, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/_ping") {
			w.Header().Set("API-Version", fakeAPIVersion)
			w.WriteHeader(http.StatusOK)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	host := "tcp://" + strings.TrimPrefix(srv.URL, "http://")
	cli, err := client.NewClientWithOpts(client.WithHost(host), client.WithVersion(fakeAPIVersion))
	require.NoError(t, err)

	return NewDockerProbeFromClient(cli), srv
}

func TestProbePing(t *testing.T) {
	p, _ := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	assert.NoError(t, p.Ping(context.Background()))
}

func TestProbePingUnreachable(t *testing.T) {
	p, srv := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := p.Ping(context.Background())
	assert.ErrorIs(t, err, ErrDaemonUnreachable)
}

func TestProbeLeftoverContainers(t *testing.T) {
	var gotFilters string
	p, _ := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/containers/json") {
			http.NotFound(w, r)
			return
		}
		gotFilters = r.URL.Query().Get("filters")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Id":"abc123","Names":["/integration-storage-1"]},{"Id":"def456","Names":[]}]`))
	})

	names, err := p.LeftoverContainers(context.Background(), "integration")
	require.NoError(t, err)
	assert.Equal(t, []string{"integration-storage-1", "def456"}, names)
	assert.Contains(t, gotFilters, "com.docker.compose.project=integration")
}

func TestProbeLeftoverContainersEmpty(t *testing.T) {
	p, _ := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	names, err := p.LeftoverContainers(context.Background(), "integration")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestProbeHasImageLocally(t *testing.T) {
	p, _ := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/images/json") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Id":"sha256:deadbeef"}]`))
	})

	ok, err := p.HasImageLocally(context.Background(), "percona:5.6")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProbeHasImageLocallyAbsent(t *testing.T) {
	p, _ := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	ok, err := p.HasImageLocally(context.Background(), "percona:5.6")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProbeHasImageLocallyInvalidReference(t *testing.T) {
	p, _ := newFakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := p.HasImageLocally(context.Background(), "UPPER CASE??")
	assert.ErrorContains(t, err, "invalid image reference")
}
