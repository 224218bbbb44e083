// Package session holds the server side state of one logged in user:
// a typed record assembled once at login and read-only afterwards,
// plus the in-memory store it lives in.
package session

import (
	"time"

	"gradeway-backend/lib/cookiejar"
	"gradeway-backend/lib/scrapers/webtop"
)

// Session is the materialized result of a successful login. All
// fields are write-once at creation.
type Session struct {
	// Cookie is the portal-domain cookie string used for follow-up
	// requests (image streaming).
	Cookie   string
	Profile  webtop.Profile
	ImageURL string
	Period1  []webtop.Grade
	Period2  []webtop.Grade

	CreatedAt time.Time
}

// Materialize assembles the session from the portal phase's outputs.
// The cookie string is re-read from the jar here because the portal
// may have refreshed its cookies during the grade fetches. No
// network i/o happens in this step.
func Materialize(jar *cookiejar.Jar, portalBaseURL string, profile webtop.Profile, imageURL string, period1, period2 []webtop.Grade) (Session, error) {
	cookie, err := jar.HeaderFor(portalBaseURL)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Cookie:    cookie,
		Profile:   profile,
		ImageURL:  imageURL,
		Period1:   period1,
		Period2:   period2,
		CreatedAt: time.Now(),
	}, nil
}
