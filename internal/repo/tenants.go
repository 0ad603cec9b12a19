package repo

import (
	"context"
	"database/sql"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
)

func (r Repo) InsertPlan(ctx context.Context, p domain.Plan) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO plans(id,slug,name,max_projects,max_users_per_tenant) VALUES (?,?,?,?,?)`,
		p.ID, p.Slug, p.Name, p.MaxProjects, p.MaxUsersPerTenant)
	return err
}

func (r Repo) GetPlanBySlug(ctx context.Context, slug string) (domain.Plan, error) {
	var p domain.Plan
	err := r.DB.QueryRowContext(ctx, `SELECT id,slug,name,max_projects,max_users_per_tenant FROM plans WHERE slug=?`, slug).
		Scan(&p.ID, &p.Slug, &p.Name, &p.MaxProjects, &p.MaxUsersPerTenant)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,slug,name,max_projects,max_users_per_tenant FROM plans ORDER BY max_projects ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.MaxProjects, &p.MaxUsersPerTenant); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) InsertTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tenants(id,name,plan_id,status,created_at) VALUES (?,?,?,?,?)`,
		t.ID, t.Name, t.PlanID, t.Status, t.CreatedAt)
	return err
}

const tenantQuery = `SELECT t.id,t.name,t.plan_id,t.status,t.created_at,p.id,p.slug,p.name,p.max_projects,p.max_users_per_tenant
FROM tenants t JOIN plans p ON p.id=t.plan_id`

func scanTenant(scan func(dest ...any) error) (domain.Tenant, error) {
	var t domain.Tenant
	var p domain.Plan
	err := scan(&t.ID, &t.Name, &t.PlanID, &t.Status, &t.CreatedAt,
		&p.ID, &p.Slug, &p.Name, &p.MaxProjects, &p.MaxUsersPerTenant)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Plan = &p
	return t, nil
}

func (r Repo) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	row := r.DB.QueryRowContext(ctx, tenantQuery+` WHERE t.id=?`, id)
	return scanTenant(row.Scan)
}

func (r Repo) GetTenantByName(ctx context.Context, name string) (domain.Tenant, error) {
	row := r.DB.QueryRowContext(ctx, tenantQuery+` WHERE t.name=?`, name)
	return scanTenant(row.Scan)
}

func (r Repo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.DB.QueryContext(ctx, tenantQuery+` ORDER BY t.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// FirstTenantID returns the oldest tenant's id, the fallback home for
// projects created by a platform admin with no tenant of their own.
func (r Repo) FirstTenantID(ctx context.Context) (string, error) {
	var id string
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM tenants ORDER BY created_at ASC, id ASC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return id, err
}

// CountProjects reports how many projects a tenant already owns, used to
// enforce the plan ceiling on create.
func (r Repo) CountProjects(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE tenant_id=?`, tenantID).Scan(&n)
	return n, err
}

// CountUsers reports how many users belong to a tenant, used to enforce the
// plan's per-tenant seat ceiling.
func (r Repo) CountUsers(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE tenant_id=?`, tenantID).Scan(&n)
	return n, err
}
