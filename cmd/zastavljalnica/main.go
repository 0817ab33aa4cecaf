package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/erazemk/zastavljalnica/internal/config"
)

const usage = `Usage: zastavljalnica <command> [flags]

Commands:
  init      create the database with a first branch and admin
  serve     run the HTTP API (and the reminder scheduler when enabled)
  staff     add a staff member
  token     issue a bearer token, or revoke one with "token revoke"
  backup    snapshot the database
  restore   replace the database with a snapshot (server must be stopped)
  remind    run reminders once: expiry, interest, report or all

Common flags:
  -db <path>     SQLite database path (overrides PAWN_DB_PATH)
  -env <path>    .env file to load (default: .env if present)
  -log <path>    also write logs to this file
`

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also written to that file. The returned function closes it.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	cleanup := func() {}
	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(&levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}))
	return cleanup, nil
}

// common holds the flags every subcommand accepts.
type common struct {
	dbPath  string
	envFile string
	logPath string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.dbPath, "db", "", "SQLite database path")
	fs.StringVar(&c.envFile, "env", "", ".env file to load")
	fs.StringVar(&c.logPath, "log", "", "log file path")
}

// load reads configuration and applies flag overrides, then sets up logging.
// The returned function must be deferred.
func (c *common) load() (*config.Config, func(), error) {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return nil, nil, err
	}
	if c.dbPath != "" {
		cfg.Database.Path = c.dbPath
	}
	closeLog, err := setupLogger(c.logPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closeLog, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	commands := map[string]func([]string) error{
		"init":    cmdInit,
		"serve":   cmdServe,
		"staff":   cmdStaff,
		"token":   cmdToken,
		"backup":  cmdBackup,
		"restore": cmdRestore,
		"remind":  cmdRemind,
	}

	name := os.Args[1]
	if name == "-h" || name == "-help" || name == "help" {
		fmt.Fprint(os.Stdout, usage)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", name, usage)
		os.Exit(1)
	}

	if err := cmd(os.Args[2:]); err != nil {
		if err == flag.ErrHelp {
			return
		}
		slog.Error("command failed", "command", name, "error", err)
		os.Exit(1)
	}
}
