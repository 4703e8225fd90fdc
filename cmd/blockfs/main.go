package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/config"
	"github.com/marmos91/blockfs/pkg/filesystem"
	"github.com/marmos91/blockfs/pkg/metrics"
)

const usage = `BlockFS - block-based file store in a single virtual disk

Usage:
  blockfs [-config path] [-log-level LEVEL] <command> [args]

Commands:
  init [-force]                 write a commented sample config
  format                        reinitialize the container
  create <name>                 create an empty file
  delete <name>                 delete a file
  exists <name>                 print whether a file exists
  size <name>                   print a file's size in bytes
  stat <name>                   print a file's size, placement and creation time
  write <name> <data>           replace a file's content
  append <name> <data>          append to a file
  read <name> [offset length]   print a byte range of a file
  cat <name>                    print a whole file
  truncate <name> <size>        shrink a file
  rename|mv <old> <new>         rename a file
  cp <src> <dst>                copy a file
  diff <a> <b>                  compare two files
  ls                            list files
  defrag                        compact files toward the start of the disk
  check                         look for overlapping extents
  backup [dest]                 copy the container to the backup destination
  restore [src]                 replace the container from a backup image
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses global flags, opens the configured volume and dispatches one
// command. Command output goes to out.
func run(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("blockfs", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() { fmt.Fprint(out, usage) }

	configPath := flags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/blockfs/config.yaml)")
	logLevel := flags.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR); overrides the config file")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return flag.ErrHelp
	}

	command, rest := flags.Arg(0), flags.Args()[1:]

	// init does not need a loadable configuration
	if command == "init" {
		return runInit(out, *configPath, rest)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// ============================================================================
	// Step 1: Configure logging
	// ============================================================================

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	closer, err := logger.SetOutputPath(cfg.Logging.Output)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	logger.Debug("Disk type: %s, capacity: %d bytes", cfg.Disk.Type, cfg.Disk.Capacity)

	// ============================================================================
	// Step 2: Open the volume
	// ============================================================================

	store, err := config.CreateStore(ctx, &cfg.Disk)
	if err != nil {
		return fmt.Errorf("failed to create disk: %w", err)
	}

	fsMetrics, registry := config.CreateMetrics(&cfg.Metrics)
	if registry != nil {
		defer func() {
			if err := metrics.WriteTextfile(cfg.Metrics.Textfile, registry); err != nil {
				logger.Warn("%v", err)
			}
		}()
	}

	fs := filesystem.New(store, filesystem.Options{
		Capacity: cfg.Disk.Capacity,
		Recorder: config.CreateRecorder(&cfg.OpLog),
		Metrics:  fsMetrics,
	})
	defer func() {
		if err := fs.Close(); err != nil {
			logger.Warn("failed to close disk: %v", err)
		}
	}()

	// A container that does not exist yet is formatted on first use.
	// restore sizes the container from the image instead.
	if store.Capacity() == 0 && command != "format" && command != "restore" {
		logger.Info("Disk not initialized, formatting %d bytes", cfg.Disk.Capacity)
		if err := fs.Format(ctx); err != nil {
			return err
		}
	}

	// ============================================================================
	// Step 3: Dispatch
	// ============================================================================

	c := &cli{fs: fs, cfg: cfg, out: out}
	return c.dispatch(ctx, command, rest)
}

func runInit(out io.Writer, configPath string, args []string) error {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	flags.SetOutput(out)
	force := flags.Bool("force", false, "Overwrite an existing config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Fprintf(out, "Configuration written to %s\n", path)
	return nil
}
