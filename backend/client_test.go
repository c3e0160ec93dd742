package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LubyRuffy/ironb2o"
	"github.com/stretchr/testify/require"
)

func TestAcquireToken_PostsFreshAnonIdentity(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []string
	)
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, ironb2o.DefaultUserAgent, r.Header.Get("User-Agent"))

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		require.Equal(t, "null", raw["geoCountry"])
		require.Contains(t, raw, "geoLatitude")
		require.Nil(t, raw["geoLatitude"])
		require.Contains(t, raw, "geoLongitude")
		require.Nil(t, raw["geoLongitude"])

		id, _ := raw["anonUserId"].(string)
		mu.Lock()
		ids = append(ids, id)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"token":"tok_%s"}`, id)
	}))
	t.Cleanup(identity.Close)

	c := NewClient(ClientConfig{IdentityURL: identity.URL, HTTPClient: identity.Client()})

	first, err := c.AcquireToken(context.Background())
	require.NoError(t, err)
	second, err := c.AcquireToken(context.Background())
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(first.AnonUserID, "anon_"))
	require.NotEqual(t, first.AnonUserID, second.AnonUserID)
	require.Equal(t, "tok_"+first.AnonUserID, first.Value)
	require.Equal(t, []string{first.AnonUserID, second.AnonUserID}, ids)
}

func TestAcquireToken_UsesInjectedIdentityGenerator(t *testing.T) {
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req identityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "anon_fixed", req.AnonUserID)
		fmt.Fprint(w, `{"token":"t"}`)
	}))
	t.Cleanup(identity.Close)

	c := NewClient(ClientConfig{
		IdentityURL:   identity.URL,
		HTTPClient:    identity.Client(),
		NewAnonUserID: func() string { return "anon_fixed" },
	})
	token, err := c.AcquireToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, Token{Value: "t", AnonUserID: "anon_fixed"}, token)
}

func TestAcquireToken_Non2xx(t *testing.T) {
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(identity.Close)

	c := NewClient(ClientConfig{IdentityURL: identity.URL, HTTPClient: identity.Client()})
	_, err := c.AcquireToken(context.Background())
	require.ErrorIs(t, err, ErrUpstreamAuth)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	require.Contains(t, statusErr.Body, "nope")
}

func TestAcquireToken_MissingToken(t *testing.T) {
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(identity.Close)

	c := NewClient(ClientConfig{IdentityURL: identity.URL, HTTPClient: identity.Client()})
	_, err := c.AcquireToken(context.Background())
	require.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestSubmitChat_ForwardsPayloadWithBearer(t *testing.T) {
	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"model":"m","messages":[],"extra":{"k":1},"stream":true}`, string(body))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(chat.Close)

	var observed []Endpoint
	c := NewClient(ClientConfig{
		ChatURL:    chat.URL,
		HTTPClient: chat.Client(),
		Observer: func(endpoint Endpoint, status int, _ time.Duration) {
			require.Equal(t, http.StatusOK, status)
			observed = append(observed, endpoint)
		},
	})

	payload, err := ForceStream([]byte(`{"model":"m","messages":[],"extra":{"k":1},"stream":false}`))
	require.NoError(t, err)

	body, err := c.SubmitChat(context.Background(), payload, "tok")
	require.NoError(t, err)
	defer body.Close()

	data, err := NewParser(body).Next()
	require.NoError(t, err)
	require.Equal(t, DoneSentinel, data)
	require.Equal(t, []Endpoint{EndpointChat}, observed)
}

func TestSubmitChat_Non2xx(t *testing.T) {
	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	t.Cleanup(chat.Close)

	c := NewClient(ClientConfig{ChatURL: chat.URL, HTTPClient: chat.Client()})
	_, err := c.SubmitChat(context.Background(), []byte(`{"stream":true}`), "tok")
	require.ErrorIs(t, err, ErrUpstreamRequest)
	require.Contains(t, err.Error(), "status 401")
}

func TestSubmitChat_TransportError(t *testing.T) {
	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := chat.URL
	chat.Close()

	c := NewClient(ClientConfig{ChatURL: url})
	_, err := c.SubmitChat(context.Background(), []byte(`{}`), "tok")
	require.ErrorIs(t, err, ErrUpstreamRequest)
}

func TestForceStream_PreservesOtherFields(t *testing.T) {
	out, err := ForceStream([]byte(`{"b":1,"a":[1,2],"z":"x"}`))
	require.NoError(t, err)
	require.Equal(t, `{"b":1,"a":[1,2],"z":"x","stream":true}`, string(out))

	out, err = ForceStream([]byte(`{"stream":"yes","a":1}`))
	require.NoError(t, err)
	require.Equal(t, `{"stream":true,"a":1}`, string(out))
}
