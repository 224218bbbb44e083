// Package corsorigins maintains the set of browser origins allowed
// to talk to the api. The list is hosted remotely as a newline
// delimited text file so it can change without a redeploy; it is
// fetched once at startup and re-fetched on operator demand.
package corsorigins

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gradeway-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/corsorigins")

type Service struct {
	listURL string
	client  *resty.Client

	mu      sync.RWMutex
	origins map[string]bool
}

func NewService(listURL string) *Service {
	client := resty.New()
	client.SetTimeout(time.Second * 15)
	telemetry.InstrumentResty(client, "services/corsorigins/http")

	return &Service{
		listURL: listURL,
		origins: map[string]bool{},
		client:  client,
	}
}

// Initialize performs the first fetch. The server should not start
// accepting requests before this succeeds.
func (s *Service) Initialize(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Refresh re-fetches the allow-list and atomically swaps it in.
// On failure the previously cached list stays in effect.
func (s *Service) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	res, err := s.client.R().
		SetContext(ctx).
		Get(s.listURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch allow-list")
		return fmt.Errorf("fetch cors allow-list: %w", err)
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "unexpected allow-list status")
		return fmt.Errorf("fetch cors allow-list: status %d", res.StatusCode())
	}

	origins := map[string]bool{}
	for _, line := range strings.Split(res.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		origins[line] = true
	}

	s.mu.Lock()
	s.origins = origins
	s.mu.Unlock()

	slog.InfoContext(ctx, "cors allow-list refreshed", "origins", len(origins))
	return nil
}

// Allowed reports whether a browser origin is on the list.
func (s *Service) Allowed(origin string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origins[origin]
}
