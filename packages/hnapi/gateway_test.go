package hnapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	hchttp "github.com/abdul-hamid-achik/hncheck/packages/http"
	"github.com/abdul-hamid-achik/hncheck/packages/item"
	"github.com/abdul-hamid-achik/hncheck/packages/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) (*mock.Server, *Gateway) {
	t.Helper()
	upstream := mock.NewServer(mock.WithPrefix("/v0"))
	ts := httptest.NewServer(upstream)
	t.Cleanup(ts.Close)

	gw, err := New(Config{BaseURL: ts.URL + "/v0/", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return upstream, gw
}

func TestNew(t *testing.T) {
	gw, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, gw.BaseURL())

	_, err = New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestGateway_URLs(t *testing.T) {
	gw, err := New(Config{BaseURL: "https://example.com/v0/"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/v0/topstories.json", gw.TopStoriesURL(false))
	assert.Equal(t, "https://example.com/v0/topstories.json?print=pretty", gw.TopStoriesURL(true))
	assert.Equal(t, "https://example.com/v0/item/42.json", gw.ItemURL("42", true))
	assert.Equal(t, "https://example.com/v0/item/42", gw.ItemURL("42", false))
	assert.Equal(t, "https://example.com/v0/item/a%2Fb.json", gw.ItemURL("a/b", true))
}

func TestGateway_TopStories(t *testing.T) {
	upstream, gw := newUpstream(t)
	upstream.SetTopStories(3, 1, 2)

	ids, err := gw.TopStoryIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)

	compact, err := gw.FetchTopStories(context.Background(), false)
	require.NoError(t, err)
	pretty, err := gw.FetchTopStories(context.Background(), true)
	require.NoError(t, err)
	assert.NotEqual(t, string(compact), string(pretty))
	assert.JSONEq(t, string(compact), string(pretty))

	withQuery, err := gw.FetchTopStoriesWithQuery(context.Background(), url.Values{"pick": {"invalid"}})
	require.NoError(t, err)
	assert.Equal(t, string(compact), string(withQuery))
}

func TestGateway_FetchItem(t *testing.T) {
	upstream, gw := newUpstream(t)
	upstream.SetItem(10, json.RawMessage(`{"id":10,"type":"comment","by":"x","text":"hi","parent":9}`))

	it, err := gw.FetchItem(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, item.KindComment, it.Kind)
	assert.Equal(t, int64(9), it.ParentID())

	it, err = gw.FetchItem(context.Background(), 11)
	require.NoError(t, err)
	assert.Nil(t, it)
}

func TestGateway_FetchItemDecodeError(t *testing.T) {
	upstream, gw := newUpstream(t)
	upstream.SetItem(12, json.RawMessage(`[1,2]`))

	_, err := gw.FetchItem(context.Background(), 12)
	require.Error(t, err)

	var decodeErr *item.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.ErrorIs(t, err, item.ErrNotObject)
}

func TestGateway_FetchFailure(t *testing.T) {
	upstream, gw := newUpstream(t)
	upstream.SetFault("/topstories.json", http.StatusServiceUnavailable)

	_, err := gw.TopStoryIDs(context.Background())
	require.Error(t, err)

	var ff *FetchFailure
	require.True(t, errors.As(err, &ff))
	assert.Equal(t, http.StatusServiceUnavailable, ff.StatusCode)
	assert.Contains(t, ff.URL, "/v0/topstories.json")
	assert.Contains(t, err.Error(), "unexpected status 503")
}

func TestGateway_TransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	gw, err := New(Config{BaseURL: base})
	require.NoError(t, err)

	_, err = gw.FetchItem(context.Background(), 1)
	var ff *FetchFailure
	require.True(t, errors.As(err, &ff))
	assert.Zero(t, ff.StatusCode)
	assert.NotNil(t, ff.Unwrap())
}

func TestGateway_FetchItemRaw(t *testing.T) {
	upstream, gw := newUpstream(t)
	upstream.SetItem(8863, json.RawMessage(`{"id":8863,"type":"story"}`))

	resp, err := gw.FetchItemRaw(context.Background(), "8863", false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsNullBody())

	resp, err = gw.FetchItemRaw(context.Background(), "anudeep", true)
	require.NoError(t, err)
	assert.True(t, resp.IsNullBody())
}

func TestGateway_Observer(t *testing.T) {
	upstream := mock.NewServer()
	upstream.SetTopStories(1)
	ts := httptest.NewServer(upstream)
	defer ts.Close()

	var urls []string
	gw, err := New(Config{BaseURL: ts.URL}, WithObserver(func(req *hchttp.Request, resp *hchttp.Response) {
		urls = append(urls, resp.URL)
	}))
	require.NoError(t, err)

	_, err = gw.TopStoryIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{ts.URL + "/topstories.json"}, urls)
}

func TestDecodeIDs(t *testing.T) {
	ids, err := DecodeIDs([]byte(`[1, "x", 2.0, 2.5, 3]`))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = DecodeIDs([]byte(`{"a":1}`))
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = DecodeIDs([]byte(`[1,`))
	var decodeErr *item.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}
