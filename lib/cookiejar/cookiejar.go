// Package cookiejar wraps net/http/cookiejar with the string-oriented
// interface the portal login flow needs: merging raw Set-Cookie lines
// and rendering a Cookie header for an arbitrary target url. A jar
// lives for exactly one login attempt and is never shared between
// concurrent attempts.
package cookiejar

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Jar is a domain/path aware cookie store. It implements
// http.CookieJar so it can back an http or resty client directly.
type Jar struct {
	inner *cookiejar.Jar
}

func New() (*Jar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, err
	}
	return &Jar{inner: inner}, nil
}

func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// Store parses raw Set-Cookie header lines received from sourceURL
// and merges them into the jar, overwriting same name/domain/path
// entries. Unparseable lines are skipped the way a browser would
// skip them.
func (j *Jar) Store(setCookies []string, sourceURL string) error {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return err
	}

	header := http.Header{}
	for _, line := range setCookies {
		header.Add("Set-Cookie", line)
	}
	res := http.Response{Header: header}

	cookies := res.Cookies()
	if len(cookies) == 0 {
		return nil
	}
	j.inner.SetCookies(u, cookies)
	return nil
}

// StoreResponse merges every Set-Cookie of an http response into the
// jar, keyed by the url the response was served from.
func (j *Jar) StoreResponse(res *http.Response) {
	if res == nil || res.Request == nil {
		return
	}
	j.inner.SetCookies(res.Request.URL, res.Cookies())
}

// HeaderFor renders the semicolon-joined name=value pairs applicable
// to targetURL, respecting domain suffix, path prefix and secure-only
// matching.
func (j *Jar) HeaderFor(targetURL string) (string, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", err
	}

	cookies := j.inner.Cookies(u)
	pairs := make([]string, len(cookies))
	for i, c := range cookies {
		pairs[i] = c.Name + "=" + c.Value
	}
	return strings.Join(pairs, "; "), nil
}
