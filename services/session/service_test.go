package session

import (
	"testing"
	"time"

	"gradeway-backend/lib/cookiejar"
	"gradeway-backend/lib/scrapers/webtop"
	"gradeway-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestStorePutGetDelete(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:services/session")
	defer cleanup()

	store := NewStore(16, time.Minute)

	id, err := store.Put(Session{Cookie: "sid=abc"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, ok := store.Get(id)
	require.True(t, ok)
	require.Equal(t, "sid=abc", got.Cookie)

	_, ok = store.Get("")
	require.False(t, ok)
	_, ok = store.Get("unknown")
	require.False(t, ok)

	store.Delete(id)
	_, ok = store.Get(id)
	require.False(t, ok)
}

func TestStoreDistinctIds(t *testing.T) {
	store := NewStore(16, time.Minute)

	a, err := store.Put(Session{Cookie: "a"})
	require.NoError(t, err)
	b, err := store.Put(Session{Cookie: "b"})
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	gotA, ok := store.Get(a)
	require.True(t, ok)
	require.Equal(t, "a", gotA.Cookie)
	gotB, ok := store.Get(b)
	require.True(t, ok)
	require.Equal(t, "b", gotB.Cookie)
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore(16, time.Millisecond*50)

	id, err := store.Put(Session{Cookie: "short"})
	require.NoError(t, err)

	time.Sleep(time.Millisecond * 120)
	_, ok := store.Get(id)
	require.False(t, ok)
}

func TestSchoolGate(t *testing.T) {
	gate := SchoolGate{School: "Example High"}

	err := gate.Check(webtop.Profile{IsTeacher: 0, SchoolName: "Example High"})
	require.NoError(t, err)

	err = gate.Check(webtop.Profile{IsTeacher: 1, SchoolName: "Example High"})
	require.ErrorIs(t, err, ErrTeacherAccount)

	err = gate.Check(webtop.Profile{IsTeacher: 0, SchoolName: "Other School"})
	require.ErrorIs(t, err, ErrUnsupportedSchool)

	// empty school disables the school check
	err = SchoolGate{}.Check(webtop.Profile{SchoolName: "Anything"})
	require.NoError(t, err)
}

func TestMaterializeRereadsCookie(t *testing.T) {
	jar, err := cookiejar.New()
	require.NoError(t, err)
	require.NoError(t, jar.Store(
		[]string{"portal=fresh; Path=/"},
		"https://portal.example.org/server/api/user/LoginMoe",
	))

	grade := webtop.Grade{Title: "exam", PeriodID: webtop.DefaultPeriod1ID}
	sess, err := Materialize(
		jar,
		"https://portal.example.org",
		webtop.Profile{UserID: "u1"},
		"https://portal.example.org/serverImages/api/stream/GetImage?id=u1",
		[]webtop.Grade{grade},
		[]webtop.Grade{},
	)
	require.NoError(t, err)
	require.Equal(t, "portal=fresh", sess.Cookie)
	require.Equal(t, "u1", sess.Profile.UserID)
	require.Len(t, sess.Period1, 1)
	require.Empty(t, sess.Period2)
	require.False(t, sess.CreatedAt.IsZero())
}
