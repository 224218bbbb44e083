// Package gradeway exposes the thin REST surface consumed by the web
// ui: login/logout, profile, profile image and per-period grades.
// All state lives in the in-memory session store; every login runs
// the full federation + portal choreography from scratch.
package gradeway

import (
	"context"
	"time"

	"gradeway-backend/lib/scrapers/moe"
	"gradeway-backend/lib/scrapers/webtop"
	"gradeway-backend/services/corsorigins"
	"gradeway-backend/services/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/gradeway")

type Options struct {
	// identity provider phase
	PortalURL  string
	TriggerURL string
	// portal api phase
	APIBaseURL   string
	PortalOrigin string
	// host-scoped TLS opt-out for the api host, see webtop.ClientOptions
	InsecureAPIHost bool

	// business-rule gate: students of this school only
	SupportedSchool string

	Period1ID int
	Period2ID int

	SessionCookieName string
	SessionCapacity   int
	SessionTTL        time.Duration
	// SecureCookies marks the session cookie Secure+SameSite=None,
	// required when the ui is served from another origin over https.
	SecureCookies bool
}

type Service struct {
	opts  Options
	store *session.Store
	gate  session.ProfileGate
	cors  *corsorigins.Service
}

// NewService wires the rest service. `cors` may be nil, in which
// case no origin checking happens (tests, local development).
func NewService(opts Options, cors *corsorigins.Service) *Service {
	if opts.Period1ID == 0 {
		opts.Period1ID = webtop.DefaultPeriod1ID
	}
	if opts.Period2ID == 0 {
		opts.Period2ID = webtop.DefaultPeriod2ID
	}
	if opts.SessionCookieName == "" {
		opts.SessionCookieName = "gradeway_session"
	}

	return &Service{
		opts:  opts,
		store: session.NewStore(opts.SessionCapacity, opts.SessionTTL),
		gate:  session.SchoolGate{School: opts.SupportedSchool},
		cors:  cors,
	}
}

// login runs the whole choreography: federation login, portal
// finalization, business gate, grade fetch, materialization. The
// result is stored and the opaque session id returned.
func (s *Service) login(ctx context.Context, username, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	moeClient, err := moe.NewClient(moe.ClientOptions{
		PortalURL:  s.opts.PortalURL,
		TriggerURL: s.opts.TriggerURL,
	})
	if err != nil {
		return "", err
	}
	result, err := moeClient.Login(ctx, username, password)
	if err != nil {
		span.SetStatus(codes.Error, "federation login failed")
		return "", err
	}

	portal := webtop.NewClient(moeClient.Jar(), webtop.ClientOptions{
		BaseURL:            s.opts.APIBaseURL,
		PortalOrigin:       s.opts.PortalOrigin,
		InsecureSkipVerify: s.opts.InsecureAPIHost,
		UserAgent:          moe.BrowserUserAgent,
	})
	profile, err := portal.LoginKey(ctx, result.Key)
	if err != nil {
		span.SetStatus(codes.Error, "portal login failed")
		return "", err
	}

	if err := s.gate.Check(profile); err != nil {
		span.SetStatus(codes.Error, "profile rejected")
		return "", err
	}

	grades, err := portal.Grades(ctx, profile.UserID, profile.ClassCode)
	if err != nil {
		span.SetStatus(codes.Error, "grade fetch failed")
		return "", err
	}
	period1, period2 := webtop.PartitionPeriods(grades, s.opts.Period1ID, s.opts.Period2ID)

	sess, err := session.Materialize(
		moeClient.Jar(),
		portalBaseURL(s.opts),
		profile,
		portal.ImageURL(profile),
		period1,
		period2,
	)
	if err != nil {
		return "", err
	}

	return s.store.Put(sess)
}

func portalBaseURL(opts Options) string {
	if opts.APIBaseURL != "" {
		return opts.APIBaseURL
	}
	return webtop.DefaultBaseURL
}
