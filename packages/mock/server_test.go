package mock

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, target string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestRouter_Match(t *testing.T) {
	r := NewRouter()
	r.AddRoute(&Route{Method: "GET", PathPattern: "/item/{{ref}}.json", Name: "item"})
	r.AddRoute(&Route{Method: "GET", PathPattern: "/item/{{ref}}", Name: "bare"})

	route, params := r.Match("GET", "/item/42.json")
	require.NotNil(t, route)
	assert.Equal(t, "item", route.Name)
	assert.Equal(t, "42", params["ref"])

	route, params = r.Match("get", "/item/42/")
	require.NotNil(t, route)
	assert.Equal(t, "bare", route.Name)
	assert.Equal(t, "42", params["ref"])

	route, _ = r.Match("POST", "/item/42.json")
	assert.Nil(t, route)

	route, _ = r.Match("GET", "/item/1/2")
	assert.Nil(t, route)
}

func TestCreatePathRegex_QuotesLiterals(t *testing.T) {
	re := createPathRegex("/topstories.json")
	assert.True(t, re.MatchString("/topstories.json"))
	assert.False(t, re.MatchString("/topstoriesXjson"))
}

func TestServer_DefaultSeed(t *testing.T) {
	s, err := NewDefaultServer()
	require.NoError(t, err)

	code, body := get(t, s, "/topstories.json")
	assert.Equal(t, http.StatusOK, code)

	var ids []int64
	require.NoError(t, json.Unmarshal([]byte(body), &ids))
	assert.NotEmpty(t, ids)
	assert.NotContains(t, body, "\n")

	for _, id := range ids {
		assert.Contains(t, s.ItemIDs(), id)
	}
}

func TestServer_PrettyPrint(t *testing.T) {
	s := NewServer()
	s.SetTopStories(1, 2, 3)

	_, compact := get(t, s, "/topstories.json")
	_, pretty := get(t, s, "/topstories.json?print=pretty")

	assert.Equal(t, "[1,2,3]", compact)
	assert.Contains(t, pretty, "\n  1,")
	assert.JSONEq(t, compact, pretty)
}

func TestServer_IgnoresUnknownQuery(t *testing.T) {
	s := NewServer()
	s.SetTopStories(5)

	code, body := get(t, s, "/topstories.json?pick=invalid")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[5]", body)
}

func TestServer_Item(t *testing.T) {
	s := NewServer()
	s.SetItem(7, json.RawMessage(`{"id":7,"type":"story","by":"a","title":"t"}`))

	code, body := get(t, s, "/item/7.json")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":7,"type":"story","by":"a","title":"t"}`, body)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown id", "/item/8.json"},
		{"non-numeric ref", "/item/anudeep.json"},
		{"missing suffix", "/item/7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, s, tt.target)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, "null", body)
		})
	}

	s.SetItem(7, nil)
	_, body = get(t, s, "/item/7.json")
	assert.Equal(t, "null", body)
}

func TestServer_Prefix(t *testing.T) {
	s := NewServer(WithPrefix("/v0/"))
	s.SetTopStories(9)

	code, _ := get(t, s, "/topstories.json")
	assert.Equal(t, http.StatusNotFound, code)

	code, body := get(t, s, "/v0/topstories.json")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "[9]", body)
}

func TestServer_Fault(t *testing.T) {
	s := NewServer(WithPrefix("/v0"))
	s.SetTopStories(1)
	s.SetFault("/topstories.json", http.StatusServiceUnavailable)

	code, body := get(t, s, "/v0/topstories.json")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Empty(t, body)

	s.SetFault("/topstories.json", 0)
	code, _ = get(t, s, "/v0/topstories.json")
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_LoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `{"topstories":[3],"items":[{"id":3,"type":"job"}],"faults":{"/item/4.json":500}}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s := NewServer()
	require.NoError(t, s.LoadSeedFile(path))

	assert.Equal(t, []int64{3}, s.ItemIDs())
	code, _ := get(t, s, "/item/4.json")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestServer_LoadSeedErrors(t *testing.T) {
	s := NewServer()
	assert.Error(t, s.LoadSeed([]byte(`{`)))

	err := s.LoadSeed([]byte(`{"items":[{"type":"story"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")

	assert.Error(t, s.LoadSeedFile(filepath.Join(t.TempDir(), "nope.json")))
}

func TestServer_Serve(t *testing.T) {
	s := NewServer(WithDelay(5 * time.Millisecond))
	s.SetTopStories(1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/topstories.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "[1]", strings.TrimSpace(string(body)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Len(t, s.Routes(), 3)
}
