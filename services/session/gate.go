package session

import (
	"errors"
	"fmt"

	"gradeway-backend/lib/scrapers/webtop"
)

// Business-rule rejections. Authentication itself succeeded upstream
// when these fire, so they are surfaced apart from credential and
// protocol failures.
var (
	ErrTeacherAccount    = errors.New("teacher accounts are not supported")
	ErrUnsupportedSchool = errors.New("this school is not supported")
)

// ProfileGate validates a freshly authenticated profile before it
// may become a session subject. Deployments supporting different
// schools plug in their own gate.
type ProfileGate interface {
	Check(profile webtop.Profile) error
}

// SchoolGate is the default gate: students only, one supported
// school. An empty School disables the school check.
type SchoolGate struct {
	School string
}

func (g SchoolGate) Check(profile webtop.Profile) error {
	if profile.IsTeacher != 0 {
		return ErrTeacherAccount
	}
	if g.School != "" && profile.SchoolName != g.School {
		return fmt.Errorf("%w: %q", ErrUnsupportedSchool, profile.SchoolName)
	}
	return nil
}
