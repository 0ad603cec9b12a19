package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/zentriztech/zentriz-genesis/internal/access"
	"github.com/zentriztech/zentriz-genesis/internal/auth"
	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
	"github.com/zentriztech/zentriz-genesis/internal/repo"
)

type identityKey struct{}

func withIdentity(ctx context.Context, id access.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFromContext(ctx context.Context) (access.Identity, huma.StatusError) {
	id, ok := ctx.Value(identityKey{}).(access.Identity)
	if !ok || id.UserID == "" {
		return access.Identity{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	}
	return id, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func newAuthMiddleware(basePath, secret string) func(http.Handler) http.Handler {
	open := map[string]bool{
		path.Join(basePath, "health"):        true,
		path.Join(basePath, "auth/login"):    true,
		path.Join(basePath, "plans"):         true,
		path.Join(basePath, "tenant/signup"): true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if open[strings.TrimRight(req.URL.Path, "/")] {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := bearerToken(strings.TrimSpace(req.Header.Get("Authorization")))
			if !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}
			id, err := auth.Verify(secret, token)
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			next.ServeHTTP(w, req.WithContext(withIdentity(req.Context(), id)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

type loginBody struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"1"`
}

type loginResponse struct {
	Token  string         `json:"token"`
	User   domain.User    `json:"user"`
	Tenant *domain.Tenant `json:"tenant,omitempty"`
}

func registerAuth(api huma.API, e engine.Engine, secret string) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with email and password",
	}, func(ctx context.Context, input *struct {
		Body loginBody
	}) (*struct {
		Body loginResponse `json:"body"`
	}, error) {
		invalid := newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid email or password", nil)
		u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Body.Email)))
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, invalid
			}
			return nil, handleError(err)
		}
		if u.Status != "active" || u.PasswordHash == "" {
			return nil, invalid
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Body.Password)) != nil {
			return nil, invalid
		}
		id := access.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
		if u.TenantID != nil {
			id.TenantID = *u.TenantID
		}
		token, err := auth.Mint(secret, id, e.Config.TokenTTL(), e.Now())
		if err != nil {
			return nil, handleError(err)
		}
		resp := loginResponse{Token: token, User: u}
		if u.TenantID != nil {
			if tenant, err := e.Repo.GetTenant(ctx, *u.TenantID); err == nil {
				resp.Tenant = &tenant
			}
		}
		return &struct {
			Body loginResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current authenticated user",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Repo.GetUser(ctx, id.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})
}
