package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"warden/cmd"
	"warden/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const usage = `usage: warden [--env-file FILE] <command> [args]

commands:
  control                  run the control bot
  worker --index N         run the worker bot at position N of WORKER_PREFIXES
  migrate up|down [n]|status
  release --index N        clear every voice binding held by worker N
  release --prefix P       clear every voice binding held by the worker named P,
                           configured or retired
`

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run(argv []string, stderr io.Writer) error {
	var envFile, prefix string
	var index int

	flagSet := pflag.NewFlagSet("warden", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", "", "dotenv file to load (default: "+config.DefaultEnvFile+" when present)")
	flagSet.IntVar(&index, "index", -1, "worker position in WORKER_PREFIXES")
	flagSet.StringVar(&prefix, "prefix", "", "worker prefix, for release")
	// Parse errors are returned to the caller; only usage goes to stderr
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() { fmt.Fprint(stderr, usage) }

	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	args := flagSet.Args()
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}
	cfg, err := config.Init()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	closeLog, err := cmd.SetupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "control":
		return cmd.RunControl(ctx)
	case "worker":
		if index < 0 {
			return errors.New("worker requires --index")
		}
		return cmd.RunWorker(ctx, index)
	case "migrate":
		return cmd.RunMigrate(args[1:])
	case "release":
		target, err := cmd.ReleaseTarget(cfg, index, prefix)
		if err != nil {
			return err
		}
		return cmd.RunRelease(ctx, target)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
