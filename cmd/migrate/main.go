package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"counselbot.org/internal/audit"
	"counselbot.org/internal/auth"
	"counselbot.org/internal/migrate"
	"counselbot.org/internal/obs"
	"counselbot.org/internal/store/pg"
)

const envAdminPassword = "ADMIN_PASSWORD"

func main() {
	log := obs.Logger()
	var (
		dsn      = flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
		email    = flag.String("email", migrate.DefaultAdmin.Email, "counselor email for account commands")
		name     = flag.String("name", migrate.DefaultAdmin.Name, "admin display name for create-admin")
		password = flag.String("password", os.Getenv(envAdminPassword), "password for create-admin and set-password (or ADMIN_PASSWORD)")
		admin    = flag.Bool("admin", true, "admin flag applied by set-admin")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or DATABASE_URL")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status|create-admin|set-password|set-admin|delete-counselor]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB())

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "status":
		var v int64
		v, err = mgr.Version(ctx)
		if err == nil {
			fmt.Printf("schema version %d\n", v)
		}
	case "create-admin":
		reg := migrate.DefaultAdmin
		reg.Email = strings.TrimSpace(*email)
		reg.Name = strings.TrimSpace(*name)
		var (
			p       auth.Principal
			created bool
		)
		p, created, err = migrate.EnsureAdmin(ctx, store, reg, *password)
		if err == nil {
			if created {
				_ = audit.LogEvent(ctx, audit.EventAdminCreated, map[string]any{"email": p.Email, "user": p.ID})
				fmt.Printf("created admin %s (id %d)\n", p.Email, p.ID)
			} else {
				fmt.Printf("admin %s already exists (id %d)\n", p.Email, p.ID)
			}
		}
	case "set-password":
		var p auth.Principal
		p, err = migrate.ResetPassword(ctx, store, strings.TrimSpace(*email), *password)
		if err == nil {
			_ = audit.LogEvent(ctx, audit.EventPasswordReset, map[string]any{"email": p.Email, "user": p.ID})
			fmt.Printf("password updated for %s (id %d)\n", p.Email, p.ID)
		}
	case "set-admin":
		var p auth.Principal
		p, err = migrate.SetAdmin(ctx, store, strings.TrimSpace(*email), *admin)
		if err == nil {
			_ = audit.LogEvent(ctx, audit.EventAdminChanged, map[string]any{"email": p.Email, "user": p.ID, "is_admin": p.IsAdmin})
			fmt.Printf("%s (id %d) admin=%v\n", p.Email, p.ID, p.IsAdmin)
		}
	case "delete-counselor":
		var p auth.Principal
		p, err = migrate.RemoveCounselor(ctx, store, strings.TrimSpace(*email))
		if err == nil {
			_ = audit.LogEvent(ctx, audit.EventAccountRemoved, map[string]any{"email": p.Email, "user": p.ID})
			fmt.Printf("deleted %s (id %d)\n", p.Email, p.ID)
		}
	default:
		log.Fatalf("unknown command %q", cmd)
	}
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			log.WithError(err).Fatalf("migrate %s: no counselor with that -email", cmd)
		}
		if errors.Is(err, auth.ErrInvalidInput) {
			log.WithError(err).Fatalf("migrate %s: check -email and -password", cmd)
		}
		log.WithError(err).Fatalf("migrate %s", cmd)
	}
}
