package webtop_test

import (
	"context"
	"io"
	"testing"

	"gradeway-backend/lib/cookiejar"
	"gradeway-backend/lib/scrapers/webtop"
	"gradeway-backend/lib/telemetry"
	"gradeway-backend/test/fakeupstream"

	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 { return &v }

func testProfile() webtop.Profile {
	return webtop.Profile{
		StudentID:       445566,
		UserID:          "pupil-1",
		SchoolName:      "Example High School",
		IsTeacher:       0,
		FullName:        "Dana Levi",
		InstitutionCode: 440010,
		ClassCode:       "ט2",
		UserImageToken:  "img-token",
	}
}

func newJar(t *testing.T) *cookiejar.Jar {
	jar, err := cookiejar.New()
	require.NoError(t, err)
	return jar
}

func TestLoginKey(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/webtop")()

	srv := fakeupstream.New(fakeupstream.Options{
		Users: []fakeupstream.User{{
			Username:          "pupil-1",
			Profile:           testProfile(),
			PortalCookieValue: "abc",
		}},
	})
	defer srv.Close()

	jar := newJar(t)
	client := webtop.NewClient(jar, webtop.ClientOptions{
		BaseURL:      srv.API.URL,
		PortalOrigin: srv.IdP.URL,
	})

	profile, err := client.LoginKey(context.Background(), fakeupstream.KeyFor("pupil-1"))
	require.NoError(t, err)
	require.Equal(t, "pupil-1", profile.UserID)
	require.Equal(t, "Example High School", profile.SchoolName)

	// the session cookie granted by the portal must land in the jar
	cookie, err := client.Cookie()
	require.NoError(t, err)
	require.Contains(t, cookie, "portal_session=abc")
}

func TestLoginKeyRejected(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/webtop")()

	srv := fakeupstream.New(fakeupstream.Options{
		Users: []fakeupstream.User{{Username: "pupil-1", Profile: testProfile()}},
	})
	defer srv.Close()

	client := webtop.NewClient(newJar(t), webtop.ClientOptions{
		BaseURL:      srv.API.URL,
		PortalOrigin: srv.IdP.URL,
	})

	_, err := client.LoginKey(context.Background(), "stale-key")
	require.ErrorIs(t, err, webtop.ErrUpstreamAuth)
}

func TestGrades(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/webtop")()

	srv := fakeupstream.New(fakeupstream.Options{
		Users: []fakeupstream.User{{
			Username: "pupil-1",
			Profile:  testProfile(),
			Grades: []webtop.Grade{
				{EvaluationID: 1, Subject: "מתמטיקה", Grade: float(92), PeriodID: 1538},
				{EvaluationID: 2, Subject: "אנגלית", Grade: float(88), PeriodID: 1539},
			},
		}},
	})
	defer srv.Close()

	client := webtop.NewClient(newJar(t), webtop.ClientOptions{
		BaseURL:      srv.API.URL,
		PortalOrigin: srv.IdP.URL,
	})
	_, err := client.LoginKey(context.Background(), fakeupstream.KeyFor("pupil-1"))
	require.NoError(t, err)

	grades, err := client.Grades(context.Background(), "445566", "ט2")
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.Equal(t, "מתמטיקה", grades[0].Subject)
	require.Equal(t, 1539, grades[1].PeriodID)
}

func TestImageURL(t *testing.T) {
	client := webtop.NewClient(newJar(t), webtop.ClientOptions{
		BaseURL: "https://portal.example",
	})
	u := client.ImageURL(testProfile())
	require.Contains(t, u, "https://portal.example/serverImages/api/stream/GetImage?")
	require.Contains(t, u, "id=pupil-1")
	require.Contains(t, u, "instiCode=440010")
	require.Contains(t, u, "token=img-token")
}

func TestFetchImage(t *testing.T) {
	defer telemetry.SetupForTesting("test:scrapers/webtop")()

	srv := fakeupstream.New(fakeupstream.Options{
		Image: []byte{0xff, 0xd8, 0xff, 0xe0},
	})
	defer srv.Close()

	body, contentType, err := webtop.FetchImage(context.Background(),
		srv.API.URL+"/serverImages/api/stream/GetImage?id=pupil-1",
		"portal_session=abc", webtop.ClientOptions{})
	require.NoError(t, err)
	defer body.Close()

	require.Equal(t, "image/jpeg", contentType)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0}, data)
}

func TestPartitionPeriods(t *testing.T) {
	grades := []webtop.Grade{
		{EvaluationID: 1, PeriodID: 1538},
		{EvaluationID: 2, PeriodID: 1539},
		{EvaluationID: 3, PeriodID: 1538},
		{EvaluationID: 4, PeriodID: 0},
		{EvaluationID: 5, PeriodID: 9999},
	}
	p1, p2 := webtop.PartitionPeriods(grades, 1538, 1539)
	require.Len(t, p1, 3)
	require.Len(t, p2, 1)
	require.Equal(t, 2, p2[0].EvaluationID)

	// a record stamped with a period id we do not know about lands in
	// neither bucket
	for _, g := range append(p1, p2...) {
		require.NotEqual(t, 5, g.EvaluationID)
	}

	// no record appears in both periods
	seen := map[int]bool{}
	for _, g := range p1 {
		seen[g.EvaluationID] = true
	}
	for _, g := range p2 {
		require.False(t, seen[g.EvaluationID])
	}
}
