package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zentriztech/zentriz-genesis/internal/access"
	"github.com/zentriztech/zentriz-genesis/internal/auth"
	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
	"github.com/zentriztech/zentriz-genesis/internal/repo"
)

type signupBody struct {
	TenantName string `json:"tenant_name" minLength:"1"`
	Plan       string `json:"plan" minLength:"1"`
	Email      string `json:"email" format:"email"`
	Name       string `json:"name" minLength:"1"`
	Password   string `json:"password" minLength:"8"`
}

type signupResponse struct {
	Token  string        `json:"token"`
	User   domain.User   `json:"user"`
	Tenant domain.Tenant `json:"tenant"`
}

// registerSignup exposes the unauthenticated onboarding surface: the plan
// catalog and tenant self-signup, which creates the tenant together with
// its first tenant admin and logs them in.
func registerSignup(api huma.API, e engine.Engine, secret string) {
	huma.Register(api, huma.Operation{
		OperationID: "list-plans",
		Method:      http.MethodGet,
		Path:        "/plans",
		Summary:     "Subscription plan catalog",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Plan `json:"body"`
	}, error) {
		plans, err := e.Repo.ListPlans(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if plans == nil {
			plans = []domain.Plan{}
		}
		return &struct {
			Body []domain.Plan `json:"body"`
		}{Body: plans}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "tenant-signup",
		Method:        http.MethodPost,
		Path:          "/tenant/signup",
		Summary:       "Create a tenant and its first admin",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body signupBody
	}) (*struct {
		Body signupResponse `json:"body"`
	}, error) {
		body := input.Body
		plan, err := e.Repo.GetPlanBySlug(ctx, body.Plan)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "unknown plan "+body.Plan, nil)
			}
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetTenantByName(ctx, body.TenantName); err == nil {
			return nil, newAPIError(http.StatusConflict, "conflict", "tenant name already taken", nil)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, handleError(err)
		}
		email := strings.ToLower(strings.TrimSpace(body.Email))
		if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
			return nil, newAPIError(http.StatusConflict, "conflict", "email already registered", nil)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, handleError(err)
		}

		now := e.Now().UTC().Format(time.RFC3339)
		tenant := domain.Tenant{
			ID:        uuid.NewString(),
			Name:      body.TenantName,
			PlanID:    plan.ID,
			Plan:      &plan,
			Status:    "active",
			CreatedAt: now,
		}
		if err := e.Repo.InsertTenant(ctx, tenant); err != nil {
			return nil, handleError(err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, handleError(err)
		}
		u := domain.User{
			ID:           uuid.NewString(),
			Email:        email,
			Name:         body.Name,
			PasswordHash: string(hash),
			TenantID:     &tenant.ID,
			Role:         domain.RoleTenantAdmin,
			Status:       "active",
			CreatedAt:    now,
		}
		if err := e.Repo.InsertUser(ctx, u); err != nil {
			return nil, handleError(err)
		}

		id := access.Identity{UserID: u.ID, Email: u.Email, Role: u.Role, TenantID: tenant.ID}
		token, err := auth.Mint(secret, id, e.Config.TokenTTL(), e.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body signupResponse `json:"body"`
		}{Body: signupResponse{Token: token, User: u, Tenant: tenant}}, nil
	})
}
