package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
)

func registerTenants(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/tenants",
		Summary:     "List tenants (platform admin only)",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Tenant `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if !id.IsAdmin() {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "platform admin required", nil)
		}
		tenants, err := e.Repo.ListTenants(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if tenants == nil {
			tenants = []domain.Tenant{}
		}
		return &struct {
			Body []domain.Tenant `json:"body"`
		}{Body: tenants}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/tenants/{tenant_id}",
		Summary:     "Get a tenant",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TenantID string `path:"tenant_id"`
	}) (*struct {
		Body domain.Tenant `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if !id.IsAdmin() && id.TenantID != input.TenantID {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "access denied", nil)
		}
		tenant, err := e.Repo.GetTenant(ctx, input.TenantID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Tenant `json:"body"`
		}{Body: tenant}, nil
	})
}

type createUserBody struct {
	Email    string  `json:"email" format:"email"`
	Name     string  `json:"name" minLength:"1"`
	Password string  `json:"password" minLength:"8"`
	Role     string  `json:"role" enum:"user,tenant_admin,zentriz_admin"`
	TenantID *string `json:"tenant_id,omitempty"`
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users (platform admin: all; tenant admin: own tenant)",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var tenantID string
		switch {
		case id.IsAdmin():
		case id.Role == domain.RoleTenantAdmin && id.TenantID != "":
			tenantID = id.TenantID
		default:
			return nil, newAPIError(http.StatusForbidden, "forbidden", "admin role required", nil)
		}
		users, err := e.Repo.ListUsers(ctx, tenantID)
		if err != nil {
			return nil, handleError(err)
		}
		if users == nil {
			users = []domain.User{}
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create a user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body createUserBody
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		body := input.Body
		switch {
		case id.IsAdmin():
		case id.Role == domain.RoleTenantAdmin && id.TenantID != "":
			// Tenant admins only manage their own tenant and cannot mint
			// platform admins.
			tid := id.TenantID
			if body.TenantID != nil && *body.TenantID != tid {
				return nil, newAPIError(http.StatusForbidden, "forbidden", "cannot create users outside your tenant", nil)
			}
			body.TenantID = &tid
			if body.Role == domain.RoleAdmin {
				return nil, newAPIError(http.StatusForbidden, "forbidden", "cannot grant platform admin", nil)
			}
		default:
			return nil, newAPIError(http.StatusForbidden, "forbidden", "admin role required", nil)
		}

		if body.TenantID != nil {
			tenant, err := e.Repo.GetTenant(ctx, *body.TenantID)
			if err != nil {
				return nil, handleError(err)
			}
			if tenant.Plan != nil {
				n, err := e.Repo.CountUsers(ctx, tenant.ID)
				if err != nil {
					return nil, handleError(err)
				}
				if n >= tenant.Plan.MaxUsersPerTenant {
					return nil, newAPIError(http.StatusForbidden, "plan_limit", "tenant user limit reached", nil)
				}
			}
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, handleError(err)
		}
		u := domain.User{
			ID:           uuid.NewString(),
			Email:        strings.ToLower(strings.TrimSpace(body.Email)),
			Name:         body.Name,
			PasswordHash: string(hash),
			TenantID:     body.TenantID,
			Role:         body.Role,
			Status:       "active",
			CreatedAt:    e.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertUser(ctx, u); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "Notifications for the current user, newest first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Notification `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ns, err := e.Repo.ListNotifications(ctx, id.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		if ns == nil {
			ns = []domain.Notification{}
		}
		return &struct {
			Body []domain.Notification `json:"body"`
		}{Body: ns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/read",
		Summary:     "Mark a notification read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct {
		Body struct {
			OK bool `json:"ok"`
		} `json:"body"`
	}, error) {
		id, authErr := identityFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.MarkNotificationRead(ctx, input.NotificationID, id.UserID); err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				OK bool `json:"ok"`
			} `json:"body"`
		}{}
		out.Body.OK = true
		return out, nil
	})
}
