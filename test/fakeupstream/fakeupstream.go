// Package fakeupstream hosts scripted stand-ins for the identity
// provider and the grades portal api, covering every step of the
// federation choreography so the login flow can be exercised without
// the live upstreams.
package fakeupstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"gradeway-backend/lib/scrapers/webtop"
)

// User is one account the fake identity provider accepts.
type User struct {
	Username string
	Password string
	Profile  webtop.Profile
	Grades   []webtop.Grade
	// value of the portal session cookie granted on LoginMoe, useful
	// for asserting cookie isolation between concurrent flows.
	// Defaults to "portal-<username>".
	PortalCookieValue string
}

type Options struct {
	Users []User
	Image []byte

	// number of js-redirect bounce pages served before the real
	// assertion page
	Bounces int
	// never serve the assertion form, even after the bounce retry
	OmitAssertionForm bool
}

// KeyFor is the login key the fake mints for a user once the
// federation flow completes.
func KeyFor(username string) string {
	return "key-" + username
}

// Server simulates both upstream hosts. IdP carries the federation
// endpoints, API the portal api host.
type Server struct {
	IdP *httptest.Server
	API *httptest.Server

	opts Options

	mu      sync.Mutex
	bounces int
	counts  map[string]int
}

func New(opts Options) *Server {
	for i := range opts.Users {
		if opts.Users[i].PortalCookieValue == "" {
			opts.Users[i].PortalCookieValue = "portal-" + opts.Users[i].Username
		}
	}
	s := &Server{
		opts:    opts,
		bounces: opts.Bounces,
		counts:  map[string]int{},
	}

	idp := http.NewServeMux()
	idp.HandleFunc("GET /{$}", s.handleLanding)
	idp.HandleFunc("GET /applications/loginMOENew/default.aspx", s.handleTrigger)
	idp.HandleFunc("GET /nidp/idff/sso", s.handleLoginPage)
	idp.HandleFunc("POST /nidp/wsfed/interstitial", s.handleInterstitial)
	idp.HandleFunc("GET /nidp/wsfed/ep/login", s.handleCredentialPage)
	idp.HandleFunc("POST /nidp/wsfed/ep/login", s.handleFinalize)
	idp.HandleFunc("POST /nidp/wsfed/ep", s.handleAjaxSignIn)
	idp.HandleFunc("GET /nidp/wsfed/ep", s.handleAssertionPage)
	idp.HandleFunc("POST /account/sso", s.handleAssertionConsumer)
	idp.HandleFunc("GET /account/loginMoe", s.handleLanded)
	s.IdP = httptest.NewServer(idp)

	api := http.NewServeMux()
	api.HandleFunc("POST /server/api/user/LoginMoe", s.handleLoginMoe)
	api.HandleFunc("POST /server/api/PupilCard/GetPupilGrades", s.handleGrades)
	api.HandleFunc("GET /serverImages/api/stream/GetImage", s.handleImage)
	s.API = httptest.NewServer(api)

	return s
}

func (s *Server) Close() {
	s.IdP.Close()
	s.API.Close()
}

// Count reports how many times an endpoint (by the keys used in the
// handlers below) was hit.
func (s *Server) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

func (s *Server) hit(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
}

func (s *Server) userByName(username string) (User, bool) {
	for _, u := range s.opts.Users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

func (s *Server) userByPortalCookie(r *http.Request) (User, bool) {
	cookie, err := r.Cookie("portal_session")
	if err != nil {
		return User{}, false
	}
	for _, u := range s.opts.Users {
		if u.PortalCookieValue == cookie.Value {
			return u, true
		}
	}
	return User{}, false
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.hit("landing")
	http.SetCookie(w, &http.Cookie{Name: "antibot", Value: "seed", Path: "/"})
	fmt.Fprint(w, "<html><body>portal landing</body></html>")
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	s.hit("trigger")
	http.Redirect(w, r, "/nidp/idff/sso", http.StatusFound)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.hit("login_page")
	fmt.Fprint(w, `<html><body>
		<form action="/nidp/wsfed/interstitial" method="post"></form>
		<script>document.forms[0].submit()</script>
	</body></html>`)
}

func (s *Server) handleInterstitial(w http.ResponseWriter, r *http.Request) {
	s.hit("interstitial")
	http.Redirect(w, r, "/nidp/wsfed/ep/login", http.StatusFound)
}

func (s *Server) handleCredentialPage(w http.ResponseWriter, r *http.Request) {
	s.hit("credential_page")
	fmt.Fprint(w, "<html><body>enter credentials</body></html>")
}

func (s *Server) handleAjaxSignIn(w http.ResponseWriter, r *http.Request) {
	s.hit("ajax_signin")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("option") != "credential" || r.PostForm.Get("isAjax") != "true" {
		http.Error(w, "unexpected payload", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	user, ok := s.userByName(r.PostForm.Get("HIN_USERID"))
	if !ok || r.PostForm.Get("Ecom_Password") != user.Password {
		json.NewEncoder(w).Encode(map[string]any{
			"isError":   true,
			"errorCode": "WRONG_USERNAME_OR_PASSWORD",
		})
		return
	}
	// the signed-in identity rides the idp session cookie, so
	// concurrent flows with separate jars stay distinguishable
	http.SetCookie(w, &http.Cookie{Name: "idp_session", Value: user.Username, Path: "/"})
	json.NewEncoder(w).Encode(map[string]any{"isError": false})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	s.hit("finalize")
	// 3xx that the client must not follow
	w.Header().Set("Location", "/nidp/wsfed/ep?sid=0")
	w.WriteHeader(http.StatusFound)
}

func (s *Server) handleAssertionPage(w http.ResponseWriter, r *http.Request) {
	s.hit("assertion_page")
	s.mu.Lock()
	bounce := s.bounces > 0
	if bounce {
		s.bounces--
	}
	s.mu.Unlock()
	if bounce {
		fmt.Fprint(w, `<html><body><script>top.location.href='ep?sid=0';</script></body></html>`)
		return
	}
	if s.opts.OmitAssertionForm {
		fmt.Fprint(w, "<html><body>nothing to see</body></html>")
		return
	}
	fmt.Fprintf(w, `<html><body>
		<form action="%s/account/sso" method="post">
			<input type="hidden" name="wa" value="wsignin1.0" />
			<input type="hidden" name="wresult" value="signed-assertion-token" />
			<input type="hidden" name="wctx" value="rm=0" />
		</form>
	</body></html>`, s.IdP.URL)
}

func (s *Server) handleAssertionConsumer(w http.ResponseWriter, r *http.Request) {
	s.hit("assertion_consumer")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("wresult") != "signed-assertion-token" {
		http.Error(w, "assertion rejected", http.StatusForbidden)
		return
	}
	idp, err := r.Cookie("idp_session")
	if err != nil {
		http.Error(w, "no idp session", http.StatusForbidden)
		return
	}
	w.Header().Set("Location", "/account/loginMoe?key="+KeyFor(idp.Value))
	w.WriteHeader(http.StatusFound)
}

func (s *Server) handleLanded(w http.ResponseWriter, r *http.Request) {
	s.hit("landed")
	fmt.Fprint(w, "<html><body>welcome</body></html>")
}

func (s *Server) handleLoginMoe(w http.ResponseWriter, r *http.Request) {
	s.hit("login_moe")
	var req struct {
		Key            string `json:"key"`
		DeviceDataJson string `json:"deviceDataJson"`
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		json.NewEncoder(w).Encode(map[string]any{"status": false})
		return
	}
	username, found := strings.CutPrefix(req.Key, "key-")
	user, ok := s.userByName(username)
	if !found || !ok {
		json.NewEncoder(w).Encode(map[string]any{"status": false})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:  "portal_session",
		Value: user.PortalCookieValue,
		Path:  "/",
	})
	json.NewEncoder(w).Encode(map[string]any{
		"status": true,
		"data":   user.Profile,
	})
}

func (s *Server) handleGrades(w http.ResponseWriter, r *http.Request) {
	s.hit("grades")
	w.Header().Set("Content-Type", "application/json")
	user, ok := s.userByPortalCookie(r)
	if !ok {
		json.NewEncoder(w).Encode(map[string]any{"status": false})
		return
	}
	grades := user.Grades
	if grades == nil {
		grades = []webtop.Grade{}
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status": true,
		"data":   grades,
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	s.hit("image")
	if r.Header.Get("Cookie") == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(s.opts.Image)
}
