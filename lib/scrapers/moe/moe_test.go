package moe_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gradeway-backend/lib/scrapers/moe"
	"gradeway-backend/lib/telemetry"
	"gradeway-backend/test/fakeupstream"

	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, srv *fakeupstream.Server) *moe.Client {
	client, err := moe.NewClient(moe.ClientOptions{
		PortalURL:      srv.IdP.URL + "/",
		TriggerURL:     srv.IdP.URL + "/applications/loginMOENew/default.aspx",
		RequestTimeout: time.Second * 5,
		FlowTimeout:    time.Second * 10,
	})
	require.NoError(t, err)
	return client
}

func TestLogin(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/moe")()

	srv := fakeupstream.New(fakeupstream.Options{
		Users: []fakeupstream.User{{Username: "123456789", Password: "hunter2"}},
	})
	defer srv.Close()

	client := newClient(t, srv)
	result, err := client.Login(context.Background(), "123456789", "hunter2")
	require.NoError(t, err)
	require.Equal(t, fakeupstream.KeyFor("123456789"), result.Key)

	require.Equal(t, 1, srv.Count("ajax_signin"))
	require.Equal(t, 1, srv.Count("finalize"))
	require.Equal(t, 1, srv.Count("assertion_page"))
	require.Equal(t, 1, srv.Count("landed"))

	// cookies set along the way stay in the jar for the portal phase
	header, err := client.Jar().HeaderFor(srv.IdP.URL)
	require.NoError(t, err)
	require.Contains(t, header, "idp_session=123456789")
	require.Contains(t, header, "antibot=seed")
}

func TestLoginBouncePage(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/moe")()

	srv := fakeupstream.New(fakeupstream.Options{
		Users:   []fakeupstream.User{{Username: "123456789", Password: "hunter2"}},
		Bounces: 1,
	})
	defer srv.Close()

	client := newClient(t, srv)
	result, err := client.Login(context.Background(), "123456789", "hunter2")
	require.NoError(t, err)
	require.Equal(t, fakeupstream.KeyFor("123456789"), result.Key)

	// the bounce page costs exactly one extra fetch
	require.Equal(t, 2, srv.Count("assertion_page"))
}

func TestLoginBouncePageOnlyRetriesOnce(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/moe")()

	srv := fakeupstream.New(fakeupstream.Options{
		Users:   []fakeupstream.User{{Username: "123456789", Password: "hunter2"}},
		Bounces: 5,
	})
	defer srv.Close()

	client := newClient(t, srv)
	_, err := client.Login(context.Background(), "123456789", "hunter2")
	require.Error(t, err)

	var protoErr *moe.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "assertion fetch", protoErr.Step)
	require.Equal(t, 2, srv.Count("assertion_page"))
}

func TestLoginWrongCredentials(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/moe")()

	srv := fakeupstream.New(fakeupstream.Options{
		Users: []fakeupstream.User{{Username: "123456789", Password: "hunter2"}},
	})
	defer srv.Close()

	client := newClient(t, srv)
	_, err := client.Login(context.Background(), "123456789", "wrong")
	require.ErrorIs(t, err, moe.ErrInvalidCredentials)

	// the flow stops at the sign-in step, no later endpoint is touched
	require.Equal(t, 1, srv.Count("ajax_signin"))
	require.Equal(t, 0, srv.Count("finalize"))
	require.Equal(t, 0, srv.Count("assertion_page"))
	require.Equal(t, 0, srv.Count("assertion_consumer"))
}

func TestLoginMissingAssertionForm(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/moe")()

	srv := fakeupstream.New(fakeupstream.Options{
		Users:             []fakeupstream.User{{Username: "123456789", Password: "hunter2"}},
		OmitAssertionForm: true,
	})
	defer srv.Close()

	client := newClient(t, srv)
	_, err := client.Login(context.Background(), "123456789", "hunter2")
	require.Error(t, err)

	var protoErr *moe.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "assertion fetch", protoErr.Step)
	// no bounce marker on the page, so there is nothing to retry
	require.Equal(t, 1, srv.Count("assertion_page"))
	require.True(t, strings.Contains(err.Error(), "assertion"))
}

func TestProtocolErrorIsNotInvalidCredentials(t *testing.T) {
	srv := fakeupstream.New(fakeupstream.Options{
		Users:             []fakeupstream.User{{Username: "123456789", Password: "hunter2"}},
		OmitAssertionForm: true,
	})
	defer srv.Close()

	client := newClient(t, srv)
	_, err := client.Login(context.Background(), "123456789", "hunter2")
	require.Error(t, err)
	require.False(t, errors.Is(err, moe.ErrInvalidCredentials))
}
