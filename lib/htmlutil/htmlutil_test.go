package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindPostForm(t *testing.T) {
	page := []byte(`<html><body>
		<form action="https://idp.example.com/submit" method="post">
			<input type="hidden" name="wa" value="wsignin1.0" />
			<input type="hidden" name="wresult" value="opaque-token" />
			<input type="hidden" name="wctx" />
			<input type="text" />
		</form>
	</body></html>`)

	form, ok := FindPostForm(page)
	require.True(t, ok)
	require.Equal(t, "https://idp.example.com/submit", form.Action)
	require.Equal(t, "POST", form.Method)
	require.Equal(t, "wsignin1.0", form.Input("wa"))
	require.Equal(t, "opaque-token", form.Input("wresult"))
	require.Equal(t, "", form.Input("wctx"))
	require.Equal(t, "", form.Input("missing"))
}

func TestFindPostFormRejectsGet(t *testing.T) {
	page := []byte(`<form action="/search" method="GET"><input name="q" /></form>`)
	_, ok := FindPostForm(page)
	require.False(t, ok)
}

func TestFindFormNoForm(t *testing.T) {
	_, ok := FindForm([]byte(`<html><body><p>nothing here</p></body></html>`))
	require.False(t, ok)

	_, ok = FindPostForm([]byte(``))
	require.False(t, ok)
}

func TestFindFormFirstOfMany(t *testing.T) {
	page := []byte(`
		<form action="/first" method="post"><input name="a" value="1" /></form>
		<form action="/second" method="post"><input name="b" value="2" /></form>`)

	form, ok := FindForm(page)
	require.True(t, ok)
	require.Equal(t, "/first", form.Action)
	require.Equal(t, "1", form.Input("a"))
	require.Equal(t, "", form.Input("b"))
}

func TestPageText(t *testing.T) {
	page := []byte(`<html><body>
		<h1>Access   Denied</h1>
		<p>The  request could
		not be processed.</p>
	</body></html>`)
	require.Equal(t, "Access Denied The request could not be processed.", PageText(page))

	require.Equal(t, "", PageText([]byte(``)))
}

func TestHasInput(t *testing.T) {
	page := []byte(`<div><input name="wresult" value="x" /></div>`)
	require.True(t, HasInput(page, "wresult"))
	require.False(t, HasInput(page, "wa"))
	// names are case sensitive
	require.False(t, HasInput(page, "WRESULT"))
}
