package handler

import (
	"context"
	"net/http"

	jwtinfra "github.com/go-trade-client/internal/infrastructure/jwt"
	"github.com/go-trade-client/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// withClaims attaches verified claims for userID, as middleware.Auth would.
func withClaims(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, &jwtinfra.Claims{ID: userID})
	return r.WithContext(ctx)
}

// withParams injects chi URL params into the request context.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
