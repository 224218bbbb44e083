// Package moe drives the ministry-of-education identity federation
// login: a fixed sequence of requests through the WS-Federation
// provider that ends with a short lived login key for the grades
// portal. Every attempt gets its own cookie jar and http clients,
// nothing is shared between concurrent logins.
package moe

import (
	"net/http"
	"net/url"
	"time"

	"gradeway-backend/lib/cookiejar"
	"gradeway-backend/lib/restyutil"
	"gradeway-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/moe")

// some federation endpoints reject clients that do not look like a
// browser
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const (
	DefaultPortalURL  = "https://webtop.smartschool.co.il/"
	DefaultTriggerURL = "https://www.webtop.co.il/applications/loginMOENew/default.aspx"
)

var instrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

type ClientOptions struct {
	// PortalURL is the public landing page fetched first to seed
	// anti-automation cookies. Defaults to the production portal.
	PortalURL string
	// TriggerURL starts the federation hand-off. Defaults to the
	// production trigger.
	TriggerURL string
	// RequestTimeout bounds each individual request, defaults to 30s.
	RequestTimeout time.Duration
	// FlowTimeout bounds the whole login attempt, defaults to 90s.
	FlowTimeout time.Duration
}

// Client runs one login attempt. Construct a fresh one per attempt
// and discard it afterwards.
type Client struct {
	opts ClientOptions
	jar  *cookiejar.Jar

	// steps differ in whether a 3xx must be followed or inspected,
	// so the redirect policy is part of the client choice, never an
	// implicit default
	follow     *resty.Client
	noRedirect *resty.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.PortalURL == "" {
		opts.PortalURL = DefaultPortalURL
	}
	if opts.TriggerURL == "" {
		opts.TriggerURL = DefaultTriggerURL
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = time.Second * 30
	}
	if opts.FlowTimeout == 0 {
		opts.FlowTimeout = time.Second * 90
	}

	jar, err := cookiejar.New()
	if err != nil {
		return nil, err
	}

	c := &Client{
		opts: opts,
		jar:  jar,
		follow: newHttpClient(jar, opts.RequestTimeout,
			resty.FlexibleRedirectPolicy(5)),
		noRedirect: newHttpClient(jar, opts.RequestTimeout,
			resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			})),
	}
	return c, nil
}

func newHttpClient(jar *cookiejar.Jar, timeout time.Duration, policy any) *resty.Client {
	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", BrowserUserAgent)
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(policy)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "scrapers/moe/http")
	restyutil.InstrumentClient(client, instrumentOutput)

	return client
}

// Jar exposes the cookies accumulated over the attempt so the portal
// phase can keep building on them.
func (c *Client) Jar() *cookiejar.Jar {
	return c.jar
}

// finalURL is the url the request landed on after any redirects.
func finalURL(res *resty.Response) string {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL.String()
	}
	return res.Request.URL
}

func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}
