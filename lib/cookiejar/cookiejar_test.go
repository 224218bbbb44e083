package cookiejar

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostIsolation(t *testing.T) {
	jar, err := New()
	require.NoError(t, err)

	err = jar.Store([]string{
		"idp_session=abc; Path=/",
		"idp_extra=def; Path=/nidp",
	}, "https://idp.example.com/nidp/app")
	require.NoError(t, err)
	err = jar.Store([]string{
		"portal_session=xyz; Path=/",
	}, "https://portal.example.org/")
	require.NoError(t, err)

	idp, err := jar.HeaderFor("https://idp.example.com/nidp/wsfed/ep")
	require.NoError(t, err)
	require.Contains(t, idp, "idp_session=abc")
	require.Contains(t, idp, "idp_extra=def")
	require.NotContains(t, idp, "portal_session")

	portal, err := jar.HeaderFor("https://portal.example.org/server/api")
	require.NoError(t, err)
	require.Equal(t, "portal_session=xyz", portal)
}

func TestPathMatching(t *testing.T) {
	jar, err := New()
	require.NoError(t, err)

	err = jar.Store([]string{"scoped=1; Path=/nidp"}, "https://idp.example.com/nidp/app")
	require.NoError(t, err)

	header, err := jar.HeaderFor("https://idp.example.com/other")
	require.NoError(t, err)
	require.Equal(t, "", header)

	header, err = jar.HeaderFor("https://idp.example.com/nidp/wsfed")
	require.NoError(t, err)
	require.Equal(t, "scoped=1", header)
}

func TestIdempotentStore(t *testing.T) {
	jar, err := New()
	require.NoError(t, err)

	line := []string{"sid=abc123; Path=/"}
	require.NoError(t, jar.Store(line, "https://idp.example.com/"))
	once, err := jar.HeaderFor("https://idp.example.com/")
	require.NoError(t, err)

	require.NoError(t, jar.Store(line, "https://idp.example.com/"))
	twice, err := jar.HeaderFor("https://idp.example.com/")
	require.NoError(t, err)

	require.Equal(t, once, twice)
	require.Equal(t, "sid=abc123", twice)
}

func TestOverwriteSameName(t *testing.T) {
	jar, err := New()
	require.NoError(t, err)

	require.NoError(t, jar.Store([]string{"sid=old; Path=/"}, "https://idp.example.com/"))
	require.NoError(t, jar.Store([]string{"sid=new; Path=/"}, "https://idp.example.com/"))

	header, err := jar.HeaderFor("https://idp.example.com/")
	require.NoError(t, err)
	require.Equal(t, "sid=new", header)
}

func TestStoreResponse(t *testing.T) {
	jar, err := New()
	require.NoError(t, err)

	u, err := url.Parse("https://portal.example.org/server/api/user/LoginMoe")
	require.NoError(t, err)

	header := http.Header{}
	header.Add("Set-Cookie", "portal_session=xyz; Path=/")
	header.Add("Set-Cookie", "flavor=chocolate; Path=/server")
	jar.StoreResponse(&http.Response{
		Header:  header,
		Request: &http.Request{URL: u},
	})

	got, err := jar.HeaderFor("https://portal.example.org/server/api")
	require.NoError(t, err)
	require.Contains(t, got, "portal_session=xyz")
	require.Contains(t, got, "flavor=chocolate")

	// nil responses and responses without a request are ignored
	jar.StoreResponse(nil)
	jar.StoreResponse(&http.Response{Header: header})
}

func TestSecureOnly(t *testing.T) {
	jar, err := New()
	require.NoError(t, err)

	require.NoError(t, jar.Store([]string{"locked=1; Path=/; Secure"}, "https://idp.example.com/"))

	https, err := jar.HeaderFor("https://idp.example.com/")
	require.NoError(t, err)
	require.Equal(t, "locked=1", https)

	plain, err := jar.HeaderFor("http://idp.example.com/")
	require.NoError(t, err)
	require.Equal(t, "", plain)
}
