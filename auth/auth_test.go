package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/LubyRuffy/ironb2o/backend"
	"github.com/stretchr/testify/require"
)

func newIdentityClient(t *testing.T, calls *int32) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		fmt.Fprintf(w, `{"token":"tok_%d"}`, n)
	}))
	t.Cleanup(srv.Close)
	return backend.NewClient(backend.ClientConfig{IdentityURL: srv.URL, HTTPClient: srv.Client()})
}

func TestAnonProvider_NewIdentityPerCall(t *testing.T) {
	var calls int32
	p, err := NewProvider("anon", newIdentityClient(t, &calls))
	require.NoError(t, err)

	access1, user1, err := p.Auth(context.Background())
	require.NoError(t, err)
	access2, user2, err := p.Auth(context.Background())
	require.NoError(t, err)

	require.Equal(t, "tok_1", access1)
	require.Equal(t, "tok_2", access2)
	require.NotEqual(t, user1, user2)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestEnvProvider(t *testing.T) {
	t.Setenv(EnvAccessToken, "k_access")
	t.Setenv(EnvAnonUserID, "anon_3")

	p := &envProvider{}
	access, user, err := p.Auth(context.Background())
	require.NoError(t, err)
	require.Equal(t, "k_access", access)
	require.Equal(t, "anon_3", user)
}

func TestEnvProvider_Missing(t *testing.T) {
	t.Setenv(EnvAccessToken, "")

	_, _, err := (&envProvider{}).Auth(context.Background())
	require.Error(t, err)
}

func TestNewProvider_AutoPrefersEnv(t *testing.T) {
	t.Setenv(EnvAccessToken, "k_access")
	var calls int32

	p, err := NewProvider("auto", newIdentityClient(t, &calls))
	require.NoError(t, err)
	access, _, err := p.Auth(context.Background())
	require.NoError(t, err)
	require.Equal(t, "k_access", access)
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestNewProvider_AutoFallsBackToAnon(t *testing.T) {
	t.Setenv(EnvAccessToken, "")
	var calls int32

	p, err := NewProvider("auto", newIdentityClient(t, &calls))
	require.NoError(t, err)
	access, _, err := p.Auth(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok_1", access)
}

func TestNewProvider_Invalid(t *testing.T) {
	_, err := NewProvider("oauth", nil)
	require.Error(t, err)
	_, err = NewProvider("anon", nil)
	require.Error(t, err)
}
