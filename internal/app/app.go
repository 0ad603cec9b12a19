// Package app wires the portal together: workspace database, migrations
// and the seed data a fresh install needs before the first login.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zentriztech/zentriz-genesis/internal/config"
	"github.com/zentriztech/zentriz-genesis/internal/db"
	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/migrate"
	"github.com/zentriztech/zentriz-genesis/internal/repo"
)

// Bootstrap opens the workspace database, runs migrations and applies the
// configured seed data.
func Bootstrap(ctx context.Context, workspace string, cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := Seed(ctx, repo.Repo{DB: conn}, cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// UserSpec describes a user to create.
type UserSpec struct {
	Email    string
	Name     string
	Password string
	Role     string
	TenantID *string
}

// CreateUser validates and inserts one user with a bcrypt password hash.
func CreateUser(ctx context.Context, r repo.Repo, spec UserSpec) (domain.User, error) {
	if spec.Email == "" || spec.Password == "" {
		return domain.User{}, errors.New("email and password are required")
	}
	switch spec.Role {
	case domain.RoleUser, domain.RoleTenantAdmin, domain.RoleAdmin:
	default:
		return domain.User{}, fmt.Errorf("invalid role %q", spec.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(spec.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	name := spec.Name
	if name == "" {
		name = spec.Email
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        spec.Email,
		Name:         name,
		PasswordHash: string(hash),
		TenantID:     spec.TenantID,
		Role:         spec.Role,
		Status:       "active",
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Seed inserts the configured plans, demo tenant and platform admin when
// they do not exist yet. It is safe to run on every start.
func Seed(ctx context.Context, r repo.Repo, cfg *config.Config) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, sp := range cfg.Seed.Plans {
		_, err := r.GetPlanBySlug(ctx, sp.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		plan := domain.Plan{
			ID:                uuid.NewString(),
			Slug:              sp.Slug,
			Name:              sp.Name,
			MaxProjects:       sp.MaxProjects,
			MaxUsersPerTenant: sp.MaxUsersPerTenant,
		}
		if err := r.InsertPlan(ctx, plan); err != nil {
			return fmt.Errorf("seed plan %s: %w", sp.Slug, err)
		}
	}

	if cfg.Seed.Tenant.Name != "" {
		if _, err := r.GetTenantByName(ctx, cfg.Seed.Tenant.Name); errors.Is(err, repo.ErrNotFound) {
			plan, err := r.GetPlanBySlug(ctx, cfg.Seed.Tenant.Plan)
			if err != nil {
				return fmt.Errorf("seed tenant plan %s: %w", cfg.Seed.Tenant.Plan, err)
			}
			tenant := domain.Tenant{
				ID:        uuid.NewString(),
				Name:      cfg.Seed.Tenant.Name,
				PlanID:    plan.ID,
				Status:    "active",
				CreatedAt: now,
			}
			if err := r.InsertTenant(ctx, tenant); err != nil {
				return fmt.Errorf("seed tenant %s: %w", tenant.Name, err)
			}
		} else if err != nil {
			return err
		}
	}

	if cfg.Seed.Admin.Email != "" {
		if _, err := r.GetUserByEmail(ctx, cfg.Seed.Admin.Email); errors.Is(err, repo.ErrNotFound) {
			hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.Admin.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			admin := domain.User{
				ID:           uuid.NewString(),
				Email:        cfg.Seed.Admin.Email,
				Name:         cfg.Seed.Admin.Name,
				PasswordHash: string(hash),
				Role:         domain.RoleAdmin,
				Status:       "active",
				CreatedAt:    now,
			}
			if err := r.InsertUser(ctx, admin); err != nil {
				return fmt.Errorf("seed admin %s: %w", admin.Email, err)
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
