package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewTrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/api/v1/", time.Second)
	assert.Equal(t, "http://localhost:5000/api/v1", c.baseURL)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

func Test_LookupSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/gameObject/abc", r.URL.Path)
		w.Write([]byte(`{"username":"red baron","score":42,"isPlayer":true}`))
	}))
	defer server.Close()

	c := New(server.URL+"/api/v1", time.Second)
	p, err := c.Lookup(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, Profile{ID: "abc", Username: "red baron", Score: 42, IsPlayer: true}, p)
}

func Test_LookupNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	_, err := c.Lookup(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = c.Lookup(context.Background(), "../etc")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func Test_LookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	_, err := c.Lookup(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func Test_LookupCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New(server.URL, time.Minute).Lookup(ctx, "abc")
	assert.Error(t, err)
}

func Test_SaveScores(t *testing.T) {
	var got []Score
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gameObject/saveGameState", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	scores := []Score{{ClientID: "a", Score: 3}, {ClientID: "b", Score: 0}}
	require.NoError(t, c.SaveScores(context.Background(), scores))
	assert.Equal(t, scores, got)
}

func Test_SaveScoresServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	assert.Error(t, New(server.URL, time.Second).SaveScores(context.Background(), nil))
}

func Test_Memory(t *testing.T) {
	m := NewMemory(false)
	p, err := m.Lookup(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "x", p.ID)

	require.NoError(t, m.SaveScores(context.Background(), []Score{{ClientID: "x", Score: 7}}))
	p, ok := m.Get("x")
	require.True(t, ok)
	assert.Equal(t, uint32(7), p.Score)

	strict := NewMemory(true)
	_, err = strict.Lookup(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrNotFound))
}
