package moe

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"

	"gradeway-backend/lib/htmlutil"

	"go.opentelemetry.io/otel/codes"
)

// the sign-in endpoint path off the credential page's origin. the
// doubled sid parameter is what the provider's own page sends.
const ajaxSignInPath = "/nidp/wsfed/ep?sid=0&sid=0"

// relative path of the assertion page off the credential page
const assertionPath = "ep?sid=0"

// marker of the provider's client-side bounce page that is sometimes
// served in place of the assertion page
const jsRedirectMarker = "top.location.href='ep?sid=0';"

const wrongCredentialsCode = "WRONG_USERNAME_OR_PASSWORD"

// LoginResult is the outcome of a successful federation login: the
// single use key bridging into the portal phase, plus the cookies
// accumulated along the way.
type LoginResult struct {
	Key string
}

type ajaxSignInResponse struct {
	IsError   bool   `json:"isError"`
	ErrorCode string `json:"errorCode"`
}

// Login runs the full federation sequence. Credentials are used for
// this one attempt and never retained. Any failure aborts the whole
// flow; no step is individually retried.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.opts.FlowTimeout)
	defer cancel()

	result, err := c.login(ctx, username, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login flow failed")
	}
	return result, err
}

func (c *Client) login(ctx context.Context, username, password string) (LoginResult, error) {
	// step 1: seed anti-automation cookies from the public landing
	// page
	slog.DebugContext(ctx, "moe login: bootstrap", "url", c.opts.PortalURL)
	_, err := c.follow.R().
		SetContext(ctx).
		Get(c.opts.PortalURL)
	if err != nil {
		return LoginResult{}, stepErr("bootstrap", err)
	}

	// step 2: the trigger redirects through the provider's hosts,
	// the url it lands on is this attempt's login page
	res, err := c.follow.R().
		SetContext(ctx).
		Get(c.opts.TriggerURL)
	if err != nil {
		return LoginResult{}, stepErr("trigger", err)
	}
	loginPageURL := finalURL(res)
	slog.DebugContext(ctx, "moe login: triggered federation", "login_page", loginPageURL)

	// step 3: the login page is an interstitial whose only purpose
	// is an auto-submitting form; posting it (empty body) lands on
	// the credential page
	res, err = c.follow.R().
		SetContext(ctx).
		Get(loginPageURL)
	if err != nil {
		return LoginResult{}, stepErr("login page", err)
	}
	form, ok := htmlutil.FindPostForm(res.Body())
	if !ok {
		return LoginResult{}, protocolErr("login page",
			"could not find auto-submit form")
	}
	autoSubmitURL, err := resolveRef(loginPageURL, form.Action)
	if err != nil {
		return LoginResult{}, stepErr("login page", err)
	}
	res, err = c.follow.R().
		SetContext(ctx).
		Post(autoSubmitURL)
	if err != nil {
		return LoginResult{}, stepErr("auto-submit", err)
	}
	credentialPageURL := finalURL(res)
	credentialOrigin, err := originOf(credentialPageURL)
	if err != nil {
		return LoginResult{}, stepErr("auto-submit", err)
	}
	slog.DebugContext(ctx, "moe login: credential page reached", "url", credentialPageURL)

	// step 4: the actual credential submission happens over the
	// provider's ajax endpoint
	res, err = c.follow.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"option":               "credential",
			"isAjax":               "true",
			"HIN_USERID":           username,
			"Ecom_Password":        password,
			"g-recaptcha-response": "",
		}).
		SetHeader("Origin", credentialOrigin).
		SetHeader("Referer", credentialPageURL).
		Post(credentialOrigin + ajaxSignInPath)
	if err != nil {
		return LoginResult{}, stepErr("sign-in", err)
	}
	var signIn ajaxSignInResponse
	if err := json.Unmarshal(res.Body(), &signIn); err != nil {
		return LoginResult{}, protocolErr("sign-in",
			"unexpected response shape: %s", err.Error())
	}
	if signIn.IsError {
		if signIn.ErrorCode == wrongCredentialsCode {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, protocolErr("sign-in",
			"provider rejected sign-in with code %q", signIn.ErrorCode)
	}

	// step 5: a final form post is required before the assertion is
	// served. the provider answers with a 3xx that must not be
	// followed, the next step uses a fixed relative path instead of
	// the Location header.
	res, err = c.noRedirect.R().
		SetContext(ctx).
		SetFormData(map[string]string{"option": "credential"}).
		SetHeader("Origin", credentialOrigin).
		SetHeader("Referer", credentialPageURL).
		Post(credentialPageURL)
	if err != nil {
		return LoginResult{}, stepErr("finalize sign-in", err)
	}
	if res.StatusCode() >= 400 {
		return LoginResult{}, protocolErr("finalize sign-in",
			"unexpected status %d", res.StatusCode())
	}

	// step 6: fetch the assertion page. the provider sometimes
	// serves a client-side bounce page first; one repeat of the
	// same request has been enough in practice.
	assertionURL, err := resolveRef(credentialPageURL, assertionPath)
	if err != nil {
		return LoginResult{}, stepErr("assertion fetch", err)
	}
	res, err = c.follow.R().
		SetContext(ctx).
		Get(assertionURL)
	if err != nil {
		return LoginResult{}, stepErr("assertion fetch", err)
	}
	if !htmlutil.HasInput(res.Body(), "wresult") &&
		bytes.Contains(res.Body(), []byte(jsRedirectMarker)) {
		// logged so we notice if the upstream's behavior shifts
		// again
		slog.WarnContext(ctx, "moe login: js redirect bounce page served, refetching assertion page")
		res, err = c.follow.R().
			SetContext(ctx).
			Get(assertionURL)
		if err != nil {
			return LoginResult{}, stepErr("assertion fetch", err)
		}
	}
	if !htmlutil.HasInput(res.Body(), "wresult") {
		// log what the provider served instead, it is usually a
		// human-readable error page
		slog.ErrorContext(ctx, "moe login: assertion page has no assertion form",
			"page_text", htmlutil.PageText(res.Body()))
		return LoginResult{}, protocolErr("assertion fetch",
			"could not find assertion form")
	}
	assertionPageURL := finalURL(res)

	// step 7: forward the signed assertion to the portal. wresult is
	// opaque, it is never parsed, only passed along.
	form, ok = htmlutil.FindForm(res.Body())
	if !ok || form.Action == "" || form.Input("wresult") == "" {
		return LoginResult{}, protocolErr("assertion submit",
			"could not parse assertion form")
	}
	actionURL, err := resolveRef(assertionPageURL, form.Action)
	if err != nil {
		return LoginResult{}, stepErr("assertion submit", err)
	}
	assertionOrigin, err := originOf(assertionPageURL)
	if err != nil {
		return LoginResult{}, stepErr("assertion submit", err)
	}
	res, err = c.noRedirect.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"wa":      form.Input("wa"),
			"wresult": form.Input("wresult"),
			"wctx":    form.Input("wctx"),
		}).
		SetHeader("Origin", assertionOrigin).
		SetHeader("Referer", assertionPageURL).
		Post(actionURL)
	if err != nil {
		return LoginResult{}, stepErr("assertion submit", err)
	}
	if res.StatusCode() < 300 || res.StatusCode() >= 400 {
		// a non-redirect answer means the assertion was rejected
		return LoginResult{}, protocolErr("assertion submit",
			"expected redirect, got status %d", res.StatusCode())
	}
	location := res.Header().Get("Location")
	if location == "" {
		return LoginResult{}, protocolErr("assertion submit",
			"redirect without Location header")
	}

	// step 8: follow the redirect chain to the portal, which encodes
	// the login key in the url it finally lands on
	hopURL, err := resolveRef(actionURL, location)
	if err != nil {
		return LoginResult{}, stepErr("final hop", err)
	}
	res, err = c.follow.R().
		SetContext(ctx).
		Get(hopURL)
	if err != nil {
		return LoginResult{}, stepErr("final hop", err)
	}
	landed := finalURL(res)
	key, err := extractLoginKey(landed)
	if err != nil {
		return LoginResult{}, err
	}

	slog.DebugContext(ctx, "moe login: key obtained")
	return LoginResult{Key: key}, nil
}

func extractLoginKey(landedURL string) (string, error) {
	u, err := url.Parse(landedURL)
	if err != nil {
		return "", stepErr("final hop", err)
	}
	if !strings.HasSuffix(u.Path, "/account/loginMoe") {
		return "", protocolErr("final hop",
			"unexpected final redirect location %q", landedURL)
	}
	key := u.Query().Get("key")
	if key == "" {
		return "", protocolErr("final hop",
			"could not extract login key from %q", landedURL)
	}
	return key, nil
}
