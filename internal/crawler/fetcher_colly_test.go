package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const samplePage = `<html><head><title>Kids</title><style>.x{}</style></head>
<body>
<script>window.track()</script>
<h1>Kids Shoes</h1>
<p>Canvas sneakers for toddlers.</p>
<a href="/kids/1">Sneaker one</a>
<a href="/kids/2">Sneaker two</a>
<a href=" ">blank</a>
</body></html>`

func TestParseDocument(t *testing.T) {
	t.Parallel()

	content, links, err := parseDocument([]byte(samplePage))
	require.NoError(t, err)
	require.Contains(t, content, "Kids Shoes")
	require.Contains(t, content, "Canvas sneakers")
	require.NotContains(t, content, "window.track")
	require.Equal(t, []string{"/kids/1", "/kids/2"}, links)
}

func TestCollyFetcher(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, samplePage)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewCollyFetcher(CollyConfig{UserAgent: "storesync-test", Timeout: 5 * time.Second}, zap.NewNop())

	t.Run("success", func(t *testing.T) {
		result, err := fetcher.Fetch(context.Background(), FetchRequest{URL: server.URL + "/", Wait: WaitBody})
		require.NoError(t, err)
		require.True(t, result.Success)
		require.Contains(t, result.Content, "Kids Shoes")
		require.Len(t, result.Links, 2)
	})

	t.Run("http error reported not raised", func(t *testing.T) {
		result, err := fetcher.Fetch(context.Background(), FetchRequest{URL: server.URL + "/missing", Wait: WaitBody})
		require.NoError(t, err)
		require.False(t, result.Success)
		require.NotEmpty(t, result.ErrorMessage)
	})
}

func TestCollyFetcherDeadlineIsPageFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, samplePage)
	}))
	defer server.Close()

	fetcher := NewCollyFetcher(CollyConfig{UserAgent: "storesync-test"}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	result, err := fetcher.Fetch(ctx, FetchRequest{URL: server.URL + "/", Wait: WaitBody, Timeout: time.Minute})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotEmpty(t, result.ErrorMessage)
}

func TestCollyFetcherCancellationIsError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, samplePage)
	}))
	defer server.Close()

	fetcher := NewCollyFetcher(CollyConfig{UserAgent: "storesync-test", Timeout: 5 * time.Second}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := fetcher.Fetch(ctx, FetchRequest{URL: server.URL + "/", Wait: WaitBody})
	require.Error(t, err)
}
