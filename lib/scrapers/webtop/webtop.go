// Package webtop talks to the grades portal api host, a different
// registrable domain than the identity provider. It consumes the
// login key produced by the federation flow and issues the data
// requests of an authenticated portal session through the same
// cookie jar.
package webtop

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"gradeway-backend/lib/cookiejar"
	"gradeway-backend/lib/restyutil"
	"gradeway-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/webtop")

const DefaultBaseURL = "https://webtopserver.smartschool.co.il"

const moduleGrades = 6

// ErrUpstreamAuth is returned when the portal's login finalization
// does not answer with a truthy status, meaning the login key was
// rejected or expired.
var ErrUpstreamAuth = errors.New("invalid response from authentication service")

var instrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

type ClientOptions struct {
	// BaseURL of the portal api host, defaults to production.
	BaseURL string
	// Origin/Referer sent with the login finalization, defaults to
	// the production portal landing page.
	PortalOrigin string
	// InsecureSkipVerify relaxes certificate validation for this
	// host only. The production api host has been observed to
	// require it; it is never a global default and should be
	// revisited against the upstream's actual certificate posture.
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
	// UserAgent reported both as a header and inside the synthetic
	// device description.
	UserAgent string
}

type Client struct {
	opts ClientOptions
	jar  *cookiejar.Jar
	http *resty.Client
}

// NewClient builds a portal client on top of the cookie jar carried
// over from the federation flow.
func NewClient(jar *cookiejar.Jar, opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PortalOrigin == "" {
		opts.PortalOrigin = "https://webtop.smartschool.co.il"
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = time.Second * 30
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.RequestTimeout)
	if opts.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	telemetry.InstrumentResty(client, "scrapers/webtop/http")
	restyutil.InstrumentClient(client, instrumentOutput)

	return &Client{opts: opts, jar: jar, http: client}
}

// Cookie renders the jar's current cookie string for the portal
// host. Call it again after portal requests, the portal refreshes
// its cookies.
func (c *Client) Cookie() (string, error) {
	return c.jar.HeaderFor(c.opts.BaseURL)
}

// LoginKey finalizes the login with the single use key from the
// federation flow. The response grants portal-domain session cookies
// (merged into the jar) and the user's profile.
func (c *Client) LoginKey(ctx context.Context, key string) (Profile, error) {
	ctx, span := tracer.Start(ctx, "client:LoginKey")
	defer span.End()

	device, err := json.Marshal(deviceData{
		IsDesktop:           true,
		GetDeviceType:       "Desktop",
		OS:                  "Windows",
		OSVersion:           "10",
		Browser:             "Chrome",
		BrowserVersion:      "123.0.0.0",
		BrowserMajorVersion: 123,
		Cookies:             true,
		UserAgent:           c.opts.UserAgent,
	})
	if err != nil {
		return Profile{}, err
	}

	cookie, err := c.Cookie()
	if err != nil {
		return Profile{}, err
	}

	loginURL := c.opts.BaseURL + "/server/api/user/LoginMoe"
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Origin", c.opts.PortalOrigin).
		SetHeader("Referer", c.opts.PortalOrigin+"/").
		SetHeader("language", "he").
		SetHeader("Cookie", cookie).
		SetBody(loginMoeRequest{
			RememberMe:     "",
			Key:            key,
			DeviceDataJson: string(device),
		}).
		Post(loginURL)
	if err != nil {
		return Profile{}, fmt.Errorf("portal login: %w", err)
	}

	// the portal session cookies arrive here, distinct from the
	// identity provider's
	c.jar.StoreResponse(res.RawResponse)

	var body loginMoeResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		span.SetStatus(codes.Error, "undecodable login response")
		return Profile{}, ErrUpstreamAuth
	}
	if !body.Status {
		span.SetStatus(codes.Error, "login key rejected")
		return Profile{}, ErrUpstreamAuth
	}

	return body.Data, nil
}

// Grades fetches the full evaluation list for a student. The portal
// returns every period's records in one list; callers partition by
// period id.
func (c *Client) Grades(ctx context.Context, studentID, classCode string) ([]Grade, error) {
	ctx, span := tracer.Start(ctx, "client:Grades")
	defer span.End()

	cookie, err := c.Cookie()
	if err != nil {
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetHeader("Cookie", cookie).
		SetBody(pupilGradesRequest{
			StudentID: studentID,
			ClassCode: classCode,
			ModuleID:  moduleGrades,
		}).
		Post("/server/api/PupilCard/GetPupilGrades")
	if err != nil {
		return nil, fmt.Errorf("fetch grades: %w", err)
	}

	var body pupilGradesResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return nil, fmt.Errorf("fetch grades: %w", err)
	}
	if !body.Status {
		return nil, fmt.Errorf("fetch grades: portal answered with falsy status")
	}
	return body.Data, nil
}

// ImageURL builds the deterministic profile image url for a user.
// The image itself is fetched on demand, never eagerly during login.
func (c *Client) ImageURL(profile Profile) string {
	q := url.Values{}
	q.Set("id", profile.UserID)
	q.Set("instiCode", fmt.Sprintf("%d", profile.InstitutionCode))
	q.Set("token", profile.UserImageToken)
	return c.opts.BaseURL + "/serverImages/api/stream/GetImage?" + q.Encode()
}

// FetchImage streams the profile image using a previously stored
// cookie string. The caller owns closing the reader.
func FetchImage(ctx context.Context, imageURL, cookie string, opts ClientOptions) (io.ReadCloser, string, error) {
	ctx, span := tracer.Start(ctx, "FetchImage")
	defer span.End()

	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = time.Second * 30
	}

	client := resty.New()
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.RequestTimeout)
	if opts.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	telemetry.InstrumentResty(client, "scrapers/webtop/http")

	res, err := client.R().
		SetContext(ctx).
		SetHeader("Cookie", cookie).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		span.SetStatus(codes.Error, "image fetch failed")
		return nil, "", err
	}

	contentType := res.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return res.RawBody(), contentType, nil
}
