package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tallerhub/tallerhub/config"
	"github.com/tallerhub/tallerhub/internal/bootstrap"
	"github.com/tallerhub/tallerhub/internal/data"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
	"github.com/tallerhub/tallerhub/internal/service"
)

type assignRoleOptions struct {
	UserID   string
	Role     domainauth.Role
	TenantID string
}

type tenantOptions struct {
	TenantID string
}

type userOptions struct {
	UserID string
}

func runAssignRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseAssignRoleFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		a := domainauth.Assignment{UserID: opts.UserID, Role: opts.Role.StoredName()}
		if opts.TenantID != "" {
			if _, err := data.NewTenantRepo(db).GetSubscription(ctx, opts.TenantID); err != nil {
				return fmt.Errorf("shop %s: %w", opts.TenantID, err)
			}
			a.TenantID = &opts.TenantID
		}
		if err := data.NewRoleAssignmentRepo(db).Upsert(ctx, a); err != nil {
			return err
		}
		cmdCtx.Logger.Info("role assigned", "user_id", opts.UserID, "role", opts.Role, "tenant_id", opts.TenantID)
		return nil
	})
}

func parseAssignRoleFlags(args []string) (assignRoleOptions, error) {
	fs := flag.NewFlagSet("assign-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts assignRoleOptions
	var role string
	fs.StringVar(&opts.UserID, "user", "", "User id (IdP subject)")
	fs.StringVar(&role, "role", "", "Role: shop_worker, shop_admin, insurer or super_admin")
	fs.StringVar(&opts.TenantID, "tenant", "", "Shop id; required for shop roles")

	if err := fs.Parse(args); err != nil {
		return assignRoleOptions{}, err
	}

	opts.UserID = strings.TrimSpace(opts.UserID)
	opts.TenantID = strings.TrimSpace(opts.TenantID)
	if opts.UserID == "" {
		return assignRoleOptions{}, errors.New("--user is required")
	}
	parsed, err := parseRole(role)
	if err != nil {
		return assignRoleOptions{}, err
	}
	opts.Role = parsed

	if !parsed.ExemptFromTrial() && opts.TenantID == "" {
		return assignRoleOptions{}, fmt.Errorf("--tenant is required for role %s", parsed)
	}
	return opts, nil
}

// parseRole accepts either the role name or its stored form.
func parseRole(s string) (domainauth.Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if r := domainauth.Role(s); r.Valid() {
		return r, nil
	}
	if r, ok := domainauth.ParseStoredRole(s); ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func runShowUser(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("show-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var opts userOptions
	fs.StringVar(&opts.UserID, "user", "", "User id (IdP subject)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.UserID = strings.TrimSpace(opts.UserID); opts.UserID == "" {
		return errors.New("--user is required")
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		a, err := data.NewRoleAssignmentRepo(db).GetByUserID(ctx, opts.UserID)
		if err != nil {
			return err
		}
		var rec *subscription.Record
		if a.TenantID != nil {
			if rec, err = data.NewTenantRepo(db).GetSubscription(ctx, *a.TenantID); err != nil {
				return err
			}
		}
		return printUser(os.Stdout, a, rec, time.Now())
	})
}

func printUser(w io.Writer, a *domainauth.Assignment, rec *subscription.Record, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	role := a.Role
	if r, ok := domainauth.ParseStoredRole(a.Role); ok {
		role = fmt.Sprintf("%s (%s)", r, a.Role)
	}
	rows := [][2]string{{"USER", a.UserID}, {"ROLE", role}}
	if a.TenantID != nil {
		rows = append(rows, [2]string{"SHOP", *a.TenantID})
	}
	if rec != nil {
		ev := subscription.Evaluate(*rec, now)
		status := string(ev.Status)
		if ev.DaysRemaining != nil {
			status = fmt.Sprintf("%s, %d days left", status, *ev.DaysRemaining)
		}
		if ev.Expire {
			status += " (expiry not yet persisted)"
		}
		rows = append(rows, [2]string{"SUBSCRIPTION", status})
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runActivateTenant(cmdCtx *commandContext, args []string) error {
	opts, err := parseTenantFlags("activate-tenant", args)
	if err != nil {
		return err
	}

	return withChangeFeed(cmdCtx, func(ctx context.Context, db *sql.DB, feed bootstrap.ChangeFeed) error {
		svc, err := service.NewTenantAdminService(service.TenantAdminServiceOptions{
			Tenants:   data.NewTenantRepo(db),
			Publisher: feed.Publisher,
			Logger:    cmdCtx.Logger,
		})
		if err != nil {
			return err
		}
		// The operator running this tool acts as the platform administrator.
		role := domainauth.RoleSuperAdmin
		return svc.Activate(ctx, domainauth.Access{Role: &role}, service.ActivateTenantRequest{TenantID: opts.TenantID})
	})
}

func parseTenantFlags(name string, args []string) (tenantOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var opts tenantOptions
	fs.StringVar(&opts.TenantID, "tenant", "", "Shop id")
	if err := fs.Parse(args); err != nil {
		return tenantOptions{}, err
	}
	if opts.TenantID = strings.TrimSpace(opts.TenantID); opts.TenantID == "" {
		return tenantOptions{}, errors.New("--tenant is required")
	}
	return opts, nil
}

func runSweepTrials(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("sweep-trials", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	batch := fs.Int("batch", cmdCtx.Config.TrialSweeper.BatchSize, "Shops expired per query")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withChangeFeed(cmdCtx, func(ctx context.Context, db *sql.DB, feed bootstrap.ChangeFeed) error {
		sweeper, err := service.NewTrialSweeper(service.TrialSweeperOptions{
			Tenants:   data.NewTenantRepo(db),
			Publisher: feed.Publisher,
			BatchSize: *batch,
			Logger:    cmdCtx.Logger,
		})
		if err != nil {
			return err
		}
		n, err := sweeper.Sweep(ctx)
		if err != nil {
			return err
		}
		return writef(os.Stdout, "Expired %d trial(s)\n", n)
	})
}

// withChangeFeed opens the database and, for the Redis backend, a Redis
// client so writes reach live shells.
func withChangeFeed(
	cmdCtx *commandContext,
	f func(context.Context, *sql.DB, bootstrap.ChangeFeed) error,
) error {
	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		var client redis.UniversalClient
		if cmdCtx.Config.ChangeFeed.Backend == config.ChangeFeedRedis {
			c, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{RedisConfig: cmdCtx.Config.Redis, Logger: cmdCtx.Logger})
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer func() {
				if cerr := c.Close(); cerr != nil {
					cmdCtx.Logger.Warn("redis close failed", "error", cerr)
				}
			}()
			client = c
		}

		feed, err := bootstrap.BuildChangeFeed(bootstrap.ChangeFeedDeps{
			Config:      cmdCtx.Config.ChangeFeed,
			DB:          db,
			RedisClient: client,
			Logger:      cmdCtx.Logger,
		})
		if err != nil {
			return err
		}
		return f(ctx, db, feed)
	})
}
