package gradeway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"gradeway-backend/lib/scrapers/moe"
	"gradeway-backend/lib/scrapers/webtop"
	"gradeway-backend/services/session"
)

// Register attaches every route to the mux. CORS checking wraps the
// mux as a whole, see Middleware.
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /user/info", s.handleUserInfo)
	mux.HandleFunc("GET /user/image", s.handleUserImage)
	mux.HandleFunc("GET /grades/period1", s.handleGradesPeriod1)
	mux.HandleFunc("GET /grades/period2", s.handleGradesPeriod2)
	mux.HandleFunc("POST /internal/cors/refresh", s.handleCorsRefresh)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	id, err := s.login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeLoginError(w, r, err)
		return
	}

	http.SetCookie(w, s.sessionCookie(id, 0))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeLoginError maps the failure taxonomy onto http statuses,
// keeping upstream detail out of responses. Raw errors go to the
// logs only.
func (s *Service) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, moe.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, session.ErrTeacherAccount):
		writeError(w, http.StatusUnauthorized, "teacher accounts are not supported")
	case errors.Is(err, session.ErrUnsupportedSchool):
		writeError(w, http.StatusUnauthorized, "this school is not supported")
	case errors.Is(err, webtop.ErrUpstreamAuth):
		slog.ErrorContext(r.Context(), "portal rejected login key", "err", err)
		writeError(w, http.StatusInternalServerError, "invalid response from authentication service")
	default:
		// protocol-shape or infrastructure failure: operators get
		// the detail, users get a generic message
		var perr *moe.ProtocolError
		if errors.As(err, &perr) {
			slog.ErrorContext(r.Context(), "login flow protocol failure",
				"step", perr.Step, "err", err)
		} else {
			slog.ErrorContext(r.Context(), "login flow failed", "err", err)
		}
		writeError(w, http.StatusInternalServerError, "login failed, please try again later")
	}
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := s.sessionID(r); ok {
		s.store.Delete(id)
	}
	http.SetCookie(w, s.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Service) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, sess.Profile)
}

func (s *Service) handleUserImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.activeSession(r)
	if !ok || sess.ImageURL == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, contentType, err := webtop.FetchImage(r.Context(), sess.ImageURL, sess.Cookie, webtop.ClientOptions{
		InsecureSkipVerify: s.opts.InsecureAPIHost,
		UserAgent:          moe.BrowserUserAgent,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "image fetch failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch image")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	io.Copy(w, body)
}

func (s *Service) handleGradesPeriod1(w http.ResponseWriter, r *http.Request) {
	s.writeGrades(w, r, func(sess session.Session) []webtop.Grade { return sess.Period1 })
}

func (s *Service) handleGradesPeriod2(w http.ResponseWriter, r *http.Request) {
	s.writeGrades(w, r, func(sess session.Session) []webtop.Grade { return sess.Period2 })
}

func (s *Service) writeGrades(w http.ResponseWriter, r *http.Request, pick func(session.Session) []webtop.Grade) {
	sess, ok := s.activeSession(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	grades := pick(sess)
	if grades == nil {
		grades = []webtop.Grade{}
	}
	writeJSON(w, http.StatusOK, grades)
}

func (s *Service) handleCorsRefresh(w http.ResponseWriter, r *http.Request) {
	if s.cors == nil {
		writeError(w, http.StatusNotFound, "cors allow-list not configured")
		return
	}
	if err := s.cors.Refresh(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "cors refresh failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to refresh allow-list")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Service) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.opts.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (s *Service) activeSession(r *http.Request) (session.Session, bool) {
	id, ok := s.sessionID(r)
	if !ok {
		return session.Session{}, false
	}
	return s.store.Get(id)
}

func (s *Service) sessionCookie(id string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.opts.SecureCookies {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     s.opts.SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: sameSite,
	}
}
