package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zentriztech/zentriz-genesis/internal/access"
	"github.com/zentriztech/zentriz-genesis/internal/app"
	"github.com/zentriztech/zentriz-genesis/internal/auth"
	"github.com/zentriztech/zentriz-genesis/internal/config"
	"github.com/zentriztech/zentriz-genesis/internal/db"
	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
	"github.com/zentriztech/zentriz-genesis/internal/migrate"
	"github.com/zentriztech/zentriz-genesis/internal/repo"
	"github.com/zentriztech/zentriz-genesis/internal/runner"
	"github.com/zentriztech/zentriz-genesis/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Zentriz Genesis portal",
	Long: `Genesis is the Zentriz customer portal backend. Clients upload a project
spec, press run, and an external pipeline of software agents takes the
project from charter to delivery while the portal tracks status, the agent
dialogue and the task board.`,
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("GENESIS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(tokenCmd())
}

// loadConfig reads genesis.yml from the workspace (defaults if absent) and
// applies GENESIS_* environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v := viper.GetString("api-base-url"); v != "" {
		cfg.Server.APIBaseURL = v
	}
	if v := viper.GetString("jwt-secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetString("runner-command"); v != "" {
		cfg.Runner.Command = v
	}
	if v := viper.GetString("runner-service-url"); v != "" {
		cfg.Runner.ServiceURL = v
	}
	if v := viper.GetString("uploads-dir"); v != "" {
		cfg.Uploads.Dir = v
	}
	return cfg, cfg.Validate()
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}
			conn, err := app.Bootstrap(cmd.Context(), viper.GetString("workspace"), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			disp, err := runner.FromConfig(cfg)
			if err != nil {
				if !errors.Is(err, runner.ErrNotConfigured) {
					return err
				}
				// Serve without a runner; /run answers 503 until one is
				// configured.
				fmt.Println("warning: no runner configured (set GENESIS_RUNNER_COMMAND or GENESIS_RUNNER_SERVICE_URL)")
			}
			e := engine.New(conn, cfg, disp)
			handler, err := server.New(server.Config{
				Engine:     e,
				BasePath:   cfg.Server.BasePath,
				JWTSecret:  cfg.Auth.JWTSecret,
				UploadsDir: cfg.Uploads.Dir,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Genesis API on %s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := app.Bootstrap(cmd.Context(), viper.GetString("workspace"), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Println("database ready:", db.Path(viper.GetString("workspace")))
			return nil
		},
	}
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Inspect projects"}
	prj.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				projects, err := r.ListProjects(ctx, repo.ProjectFilter{})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(projects)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Tenant", "Updated"})
				for _, p := range projects {
					tw.AppendRow(table.Row{p.ID, p.Title, p.Status, p.TenantID, p.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	prj.AddCommand(&cobra.Command{
		Use:   "show <project-id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	})
	return prj
}

func tenantCmd() *cobra.Command {
	tnt := &cobra.Command{Use: "tenant", Short: "Inspect tenants"}
	tnt.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tenants, err := r.ListTenants(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tenants)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Plan", "Status"})
				for _, t := range tenants {
					plan := t.PlanID
					if t.Plan != nil {
						plan = t.Plan.Name
					}
					tw.AppendRow(table.Row{t.ID, t.Name, plan, t.Status})
				}
				tw.Render()
				return nil
			})
		},
	})
	return tnt
}

func planCmd() *cobra.Command {
	pln := &cobra.Command{Use: "plan", Short: "Inspect plans"}
	pln.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				plans, err := r.ListPlans(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(plans)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Slug", "Name", "Max Projects", "Max Users"})
				for _, p := range plans {
					tw.AppendRow(table.Row{p.Slug, p.Name, p.MaxProjects, p.MaxUsersPerTenant})
				}
				tw.Render()
				return nil
			})
		},
	})
	return pln
}

func userCmd() *cobra.Command {
	usr := &cobra.Command{Use: "user", Short: "Manage users"}
	usr.AddCommand(userCreateCmd())
	usr.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				users, err := r.ListUsers(ctx, "")
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Email", "Role", "Tenant", "Status"})
				for _, u := range users {
					tenant := ""
					if u.TenantID != nil {
						tenant = *u.TenantID
					}
					tw.AppendRow(table.Row{u.ID, u.Email, u.Role, tenant, u.Status})
				}
				tw.Render()
				return nil
			})
		},
	})
	return usr
}

func userCreateCmd() *cobra.Command {
	var email, name, password, role, tenantName string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var tenantID *string
				if tenantName != "" {
					tenant, err := e.Repo.GetTenantByName(ctx, tenantName)
					if err != nil {
						return fmt.Errorf("tenant %s: %w", tenantName, err)
					}
					tenantID = &tenant.ID
				}
				u, err := app.CreateUser(ctx, e.Repo, app.UserSpec{
					Email:    email,
					Name:     name,
					Password: password,
					Role:     role,
					TenantID: tenantID,
				})
				if err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", domain.RoleUser, "role (user, tenant_admin, zentriz_admin)")
	cmd.Flags().StringVar(&tenantName, "tenant", "", "tenant name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func tokenCmd() *cobra.Command {
	var email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				u, err := r.GetUserByEmail(ctx, email)
				if err != nil {
					return err
				}
				id := access.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
				if u.TenantID != nil {
					id.TenantID = *u.TenantID
				}
				token, err := auth.Mint(cfg.Auth.JWTSecret, id, ttl, time.Now())
				if err != nil {
					return err
				}
				fmt.Println(token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	disp, err := runner.FromConfig(cfg)
	if err != nil && !errors.Is(err, runner.ErrNotConfigured) {
		return err
	}
	return fn(ctx, engine.New(conn, cfg, disp))
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
