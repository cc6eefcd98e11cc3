package httptransport

import (
	"context"
	"net/http"

	authmodels "aureon/internal/auth/models"
	"aureon/internal/ratelimit"
	tenantmodels "aureon/internal/tenant/models"
	"aureon/pkg/requestcontext"
)

// State is what the stage chain has established about a request so far.
// Stages receive the state built by everything before them and return an
// enriched copy; nothing downstream can mutate what an earlier stage saw.
type State struct {
	ClientIP  string
	Tenant    *tenantmodels.Context
	Identity  *authmodels.Identity
	RateLimit *ratelimit.Decision
}

// Stage is one step of the request pipeline. A non-nil error terminates the
// request with the structured rejection envelope; otherwise the returned
// state feeds the next stage.
type Stage struct {
	Name string
	Run  func(w http.ResponseWriter, r *http.Request, st State) (State, error)
}

type stateKey struct{}

func withState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// StateFrom returns the pipeline state attached to the request context.
// Handlers and nested chains read tenant, identity, and budget from here.
func StateFrom(ctx context.Context) State {
	if st, ok := ctx.Value(stateKey{}).(State); ok {
		return st
	}
	return State{}
}

// chain composes stages into middleware. Route-level chains pick up the
// state the router-level chain already established.
func (s *Server) chain(stages ...Stage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := StateFrom(r.Context())
			for _, stage := range stages {
				var err error
				st, err = stage.Run(w, r, st)
				if err != nil {
					s.logger.Warn("request rejected",
						"stage", stage.Name,
						"path", r.URL.Path,
						"request_id", requestcontext.RequestID(r.Context()),
						"error", err,
					)
					writeError(w, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(withState(r.Context(), st)))
		})
	}
}
