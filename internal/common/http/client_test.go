package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient(2*time.Second, WithMaxIdleConnsPerHost(3))

	assert.Equal(t, 2*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 3, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 100, transport.MaxIdleConns)
}

func TestNewClient_CustomTransport(t *testing.T) {
	custom := &http.Transport{}
	client := NewClient(time.Second, WithTransport(custom))
	assert.Same(t, custom, client.Transport)
}

func TestNewClient_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	_, err := NewClient(time.Second, WithMaxRedirects(2)).Get(server.URL + "/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 2 redirects")

	_, err = NewClient(time.Second).Get(server.URL + "/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 5 redirects")
}
