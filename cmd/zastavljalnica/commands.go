package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/erazemk/zastavljalnica/internal/api"
	"github.com/erazemk/zastavljalnica/internal/auth"
	"github.com/erazemk/zastavljalnica/internal/backup"
	"github.com/erazemk/zastavljalnica/internal/config"
	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/db"
	"github.com/erazemk/zastavljalnica/internal/model"
	"github.com/erazemk/zastavljalnica/internal/notify"
	"github.com/erazemk/zastavljalnica/internal/reminder"
	"github.com/erazemk/zastavljalnica/internal/store"
)

// openDatabase opens the configured database and ensures its schema.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

func clockFor(cfg *config.Config) (dates.Clock, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return dates.SystemClock{Location: loc}, nil
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	var c common
	c.register(fs)
	branchName := fs.String("branch", "Main", "first branch name")
	branchPhone := fs.String("phone", "", "shop phone, used in customer reminders")
	username := fs.String("user", "admin", "admin username")
	fullName := fs.String("name", "", "admin full name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()

	if _, err := os.Stat(cfg.Database.Path); err == nil {
		return fmt.Errorf("database file %s already exists", cfg.Database.Path)
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	fail := func(err error) error {
		database.Close()
		os.Remove(cfg.Database.Path)
		return err
	}

	branch, err := store.CreateBranch(ctx, database, *branchName, *branchPhone)
	if err != nil {
		return fail(err)
	}
	if *branchPhone != "" {
		if err := store.SetSetting(ctx, database, store.SettingCompanyPhone, *branchPhone); err != nil {
			return fail(err)
		}
	}
	admin, err := store.CreateStaff(ctx, database, *username, *fullName, model.RoleAdmin, branch.ID)
	if err != nil {
		return fail(err)
	}
	token, err := issueToken(ctx, cfg, database, admin, auth.TokenExpiry)
	if err != nil {
		return fail(err)
	}

	fmt.Printf("Database created: %s\n", cfg.Database.Path)
	fmt.Printf("Branch: %s (id %d)\n", branch.Name, branch.ID)
	fmt.Printf("Admin: %s\n", admin.Username)
	fmt.Println()
	fmt.Println("Admin token (valid 12h, issue more with \"zastavljalnica token\"):")
	fmt.Println(token)
	return nil
}

func issueToken(ctx context.Context, cfg *config.Config, database *sql.DB, staff *model.Staff, ttl time.Duration) (string, error) {
	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return "", err
	}
	clock, err := clockFor(cfg)
	if err != nil {
		return "", err
	}
	token, claims, err := auth.GenerateToken(secret, staff, ttl, clock.Now())
	if err != nil {
		return "", err
	}
	slog.Info("token issued", "staff", staff.Username, "jti", claims.TokenID(), "expires", claims.Expiry())
	return token, nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var c common
	c.register(fs)
	addr := fs.String("addr", "", "listen address (overrides PAWN_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "path", cfg.Database.Path)

	ctx := context.Background()
	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return err
	}
	clock, err := clockFor(cfg)
	if err != nil {
		return err
	}

	var scheduler *reminder.Scheduler
	if cfg.Reminder.Enabled {
		loc, _ := cfg.Location()
		job := newReminderJob(cfg, database, clock)
		scheduler, err = reminder.NewScheduler(cfg.Reminder, loc, job)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, secret, clock, notify.NewSessions()))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if scheduler != nil {
			scheduler.Stop(ctx)
		}
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr, "timezone", cfg.Timezone,
		"reminders", cfg.Reminder.Enabled)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

func newReminderJob(cfg *config.Config, database *sql.DB, clock dates.Clock) *reminder.Job {
	var line reminder.Channel
	if ch, ok := reminder.NewLineChannel(cfg.Line); ok {
		line = ch
	}
	return reminder.NewJob(database, clock, reminder.NewSMSChannel(cfg.SMS), line)
}

func cmdStaff(args []string) error {
	fs := flag.NewFlagSet("staff", flag.ContinueOnError)
	var c common
	c.register(fs)
	username := fs.String("user", "", "username (required)")
	fullName := fs.String("name", "", "full name")
	role := fs.String("role", model.RoleStaff, "role: admin, manager or staff")
	branchID := fs.Int64("branch", 0, "branch id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *branchID == 0 {
		return errors.New("-user and -branch are required")
	}
	if !model.ValidRole(*role) {
		return fmt.Errorf("unknown role %q", *role)
	}

	cfg, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	branch, err := store.GetBranch(ctx, database, *branchID)
	if err != nil {
		return err
	}
	if branch == nil {
		return fmt.Errorf("branch %d does not exist", *branchID)
	}

	staff, err := store.CreateStaff(ctx, database, *username, *fullName, *role, branch.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Staff %s (id %d, %s) added to %s\n", staff.Username, staff.ID, staff.Role, branch.Name)
	return nil
}

func cmdToken(args []string) error {
	if len(args) > 0 && args[0] == "revoke" {
		return cmdTokenRevoke(args[1:])
	}

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	var c common
	c.register(fs)
	username := fs.String("user", "", "staff username (required)")
	ttl := fs.Duration("ttl", auth.TokenExpiry, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("-user is required")
	}

	cfg, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	staff, err := store.GetStaffByUsername(ctx, database, *username)
	if err != nil {
		return err
	}
	if staff == nil || staff.DeletedAt != nil {
		return fmt.Errorf("no active staff member %q", *username)
	}

	token, err := issueToken(ctx, cfg, database, staff, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func cmdTokenRevoke(args []string) error {
	fs := flag.NewFlagSet("token revoke", flag.ContinueOnError)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: zastavljalnica token revoke [flags] <token>")
	}

	cfg, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return err
	}
	clock, err := clockFor(cfg)
	if err != nil {
		return err
	}
	now := clock.Now()
	claims, err := auth.ValidateToken(secret, strings.TrimSpace(fs.Arg(0)), now)
	if err != nil {
		return err
	}
	if err := store.RevokeToken(ctx, database, claims.TokenID(), claims.Expiry(), now); err != nil {
		return err
	}
	slog.Info("token revoked", "staff", claims.Username, "jti", claims.TokenID())
	return nil
}

func cmdBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	var c common
	c.register(fs)
	dir := fs.String("dir", "", "backup directory (overrides PAWN_BACKUP_DIR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()
	if *dir != "" {
		cfg.Backup.Dir = *dir
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	clock, err := clockFor(cfg)
	if err != nil {
		return err
	}

	artifact, err := backup.New(database, cfg.Backup.Dir, cfg.Backup.Timeout, clock).Create(context.Background())
	if err != nil {
		return err
	}
	return printJSON(artifact)
}

func cmdRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: zastavljalnica restore [flags] <backup file or manifest>")
	}

	cfg, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()

	artifact, err := backup.LoadArtifact(fs.Arg(0))
	if err != nil {
		return err
	}
	clock, err := clockFor(cfg)
	if err != nil {
		return err
	}

	// Restore works on files only; no connection to the target is held.
	svc := backup.New(nil, cfg.Backup.Dir, cfg.Backup.Timeout, clock)
	res, err := svc.Restore(context.Background(), artifact, cfg.Database.Path)
	if res != nil {
		for _, line := range res.Output {
			fmt.Println("integrity_check:", line)
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("Restored %s into %s\n", artifact.Path, cfg.Database.Path)
	return nil
}

func cmdRemind(args []string) error {
	fs := flag.NewFlagSet("remind", flag.ContinueOnError)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind := "all"
	if fs.NArg() > 0 {
		kind = fs.Arg(0)
	}

	cfg, closeLog, err := c.load()
	if err != nil {
		return err
	}
	defer closeLog()
	if cfg.SMS.URL == "" {
		return errors.New("PAWN_SMS_URL must be provided")
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	clock, err := clockFor(cfg)
	if err != nil {
		return err
	}
	job := newReminderJob(cfg, database, clock)

	runs := map[string]func(context.Context) (reminder.Result, error){
		"all":      job.RunAll,
		"expiry":   job.SendExpiryReminders,
		"interest": job.SendInterestReminders,
		"report":   job.SendDailyReport,
	}
	run, ok := runs[kind]
	if !ok {
		return fmt.Errorf("unknown reminder kind %q (want expiry, interest, report or all)", kind)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := run(ctx)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
