package officetoolcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vtabsquare/officetool/internal/config"
	"github.com/vtabsquare/officetool/internal/envutil"
	"github.com/vtabsquare/officetool/internal/logger"
	"github.com/vtabsquare/officetool/internal/portalapp"
	"github.com/vtabsquare/officetool/internal/store"
)

var ErrUsage = errors.New("usage")

func Execute(args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:])
	case "run":
		return runCommand(args[1:])
	case "backup":
		return runBackup(args[1:])
	case "restore":
		return runRestore(args[1:])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: officetool <setup|run|backup|restore> [...]", ErrUsage)
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: officetool setup [--env-file .env] [--force]")
	fmt.Fprintln(w, "       officetool run [--config <path>]")
	fmt.Fprintln(w, "       officetool backup --out <file.xz> [--config <path>]")
	fmt.Fprintln(w, "       officetool restore --in <file.xz> [--config <path>]")
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	envPath := fs.String("env-file", ".env", "path to .env file")
	apiBase := fs.String("api-base", "http://localhost:9000", "workforce API base URL")
	eventWS := fs.String("event-ws", "", "websocket endpoint for call events (optional)")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	values := map[string]string{
		"OFFICETOOL_API_BASE": *apiBase,
		"OFFICETOOL_STORE":    "officetool.json",
		"PORT":                "8080",
		"LOG_LEVEL":           "info",
	}
	if *eventWS != "" {
		values["OFFICETOOL_EVENT_WS"] = *eventWS
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *envPath)
	return nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configFile := fs.String("config", "", "path to config yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	if err := ensureParentDirs(cfg.Store.Path, cfg.Log.File); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := portalapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	configFile := fs.String("config", "", "path to config yaml")
	out := fs.String("out", "", "destination archive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("--out is required")
	}

	cfg := config.Load(*configFile)
	durable, err := store.OpenDurable(cfg.Store.Path)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := durable.Snapshot(f); err != nil {
		return fmt.Errorf("snapshot %s: %w", cfg.Store.Path, err)
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func runRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	configFile := fs.String("config", "", "path to config yaml")
	in := fs.String("in", "", "archive to restore from")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("--in is required")
	}

	cfg := config.Load(*configFile)
	if err := ensureParentDirs(cfg.Store.Path); err != nil {
		return err
	}
	durable, err := store.OpenDurable(cfg.Store.Path)
	if err != nil {
		return err
	}

	f, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := durable.Restore(f); err != nil {
		return fmt.Errorf("restore %s: %w", *in, err)
	}
	fmt.Printf("restored %s from %s\n", cfg.Store.Path, *in)
	return nil
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
