package corsorigins

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gradeway-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestRefreshAndAllowed(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:services/corsorigins")
	defer cleanup()

	list := "https://app.example.com\n// staging, disabled for now\n\nhttps://beta.example.com \n"
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(list))
	}))
	defer upstream.Close()

	svc := NewService(upstream.URL)
	require.False(t, svc.Allowed("https://app.example.com"))

	err := svc.Initialize(context.Background())
	require.NoError(t, err)

	require.True(t, svc.Allowed("https://app.example.com"))
	require.True(t, svc.Allowed("https://beta.example.com"))
	require.False(t, svc.Allowed("https://evil.example.com"))
	require.False(t, svc.Allowed("// staging, disabled for now"))
}

func TestRefreshKeepsOldListOnFailure(t *testing.T) {
	ok := true
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("https://app.example.com\n"))
	}))
	defer upstream.Close()

	svc := NewService(upstream.URL)
	require.NoError(t, svc.Initialize(context.Background()))
	require.True(t, svc.Allowed("https://app.example.com"))

	ok = false
	err := svc.Refresh(context.Background())
	require.Error(t, err)
	// previous list still in effect
	require.True(t, svc.Allowed("https://app.example.com"))
}
