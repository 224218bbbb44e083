package main

import (
	"flag"
	"net/http"
	"time"

	"gradeway-backend/lib/configutil"
	"gradeway-backend/lib/serviceutil"
	"gradeway-backend/services/corsorigins"
	"gradeway-backend/services/gradeway"
)

type Config struct {
	Port     int           `json:"port"`
	Login    LoginConfig   `json:"login"`
	Sessions SessionConfig `json:"sessions"`
	Cors     CorsConfig    `json:"cors"`
}

type LoginConfig struct {
	PortalURL       string `json:"portal_url"`
	TriggerURL      string `json:"trigger_url"`
	ApiBaseURL      string `json:"api_base_url"`
	PortalOrigin    string `json:"portal_origin"`
	InsecureApiHost bool   `json:"insecure_api_host"`
	SupportedSchool string `json:"supported_school"`
	Period1ID       int    `json:"period1_id"`
	Period2ID       int    `json:"period2_id"`
}

type SessionConfig struct {
	CookieName    string `json:"cookie_name"`
	Capacity      int    `json:"capacity"`
	TtlHours      int    `json:"ttl_hours"`
	SecureCookies bool   `json:"secure_cookies"`
}

type CorsConfig struct {
	AllowedOriginsURL string `json:"allowed_origins_url"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	var cors *corsorigins.Service
	if cfg.Cors.AllowedOriginsURL != "" {
		cors = corsorigins.NewService(cfg.Cors.AllowedOriginsURL)
		if err := cors.Initialize(ctx); err != nil {
			serviceutil.Fatal("init cors origins", err)
		}
	}

	svc := gradeway.NewService(gradeway.Options{
		PortalURL:         cfg.Login.PortalURL,
		TriggerURL:        cfg.Login.TriggerURL,
		APIBaseURL:        cfg.Login.ApiBaseURL,
		PortalOrigin:      cfg.Login.PortalOrigin,
		InsecureAPIHost:   cfg.Login.InsecureApiHost,
		SupportedSchool:   cfg.Login.SupportedSchool,
		Period1ID:         cfg.Login.Period1ID,
		Period2ID:         cfg.Login.Period2ID,
		SessionCookieName: cfg.Sessions.CookieName,
		SessionCapacity:   cfg.Sessions.Capacity,
		SessionTTL:        time.Hour * time.Duration(cfg.Sessions.TtlHours),
		SecureCookies:     cfg.Sessions.SecureCookies,
	}, cors)

	mux := http.NewServeMux()
	svc.Register(mux)

	go serviceutil.StartHttpServer(cfg.Port, svc.Middleware(mux))
	<-ctx.Done()
}
