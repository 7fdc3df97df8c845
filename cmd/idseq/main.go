package main

import (
	"os"
	"path"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/idseq/internal/cli"
	"github.com/julianstephens/idseq/internal/idseq"
	"github.com/julianstephens/idseq/internal/logger"
)

var (
	version = "idseq v0.1.0"
)

type LogOpts struct {
	Level  string `help:"Logging level (debug, info, warn, error)" default:"info" envvar:"IDSEQ_LOG_LEVEL"`
	Debug  bool   `help:"Enable debug logging (overrides --level)"                envvar:"IDSEQ_DEBUG"`
	Stream bool   `help:"Log to stdout/stderr in addition to file"                envvar:"IDSEQ_LOG_STREAM"`
}

type CLI struct {
	Init   cli.InitCmd   `cmd:"" help:"Initialize an allocator directory"`
	Next   cli.NextCmd   `cmd:"" help:"Issue one or more identifiers"`
	Peek   cli.PeekCmd   `cmd:"" help:"Show the durable counter without reserving"`
	Stats  cli.StatsCmd  `cmd:"" help:"Show counter state and configuration"`
	Health cli.HealthCmd `cmd:"" help:"Check identifier space health"`
	Bench  cli.BenchCmd  `cmd:"" help:"Benchmark concurrent allocation"`

	LogOpts LogOpts          `embed:"" prefix:"log-" help:"Logging options"`
	Version kong.VersionFlag `                       help:"Show version information" short:"V"`
}

func createLogger(opts LogOpts) (logger.Logger, error) {
	var level string
	if opts.Debug {
		level = "debug"
	} else {
		level = opts.Level
	}

	consoleLogger := logger.NewConsoleLogger(level)
	if opts.Stream {
		return consoleLogger, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	logDir := path.Join(homeDir, idseq.DefaultAppDir, idseq.DefaultLogDir)
	fileLogger, err := logger.NewFileLogger(
		logDir,
		idseq.DefaultLogFileName,
		idseq.DefaultLogMaxSize,
		idseq.DefaultLogMaxBackups,
	)
	if err != nil {
		return nil, err
	}

	return logger.NewMultiLogger(fileLogger, consoleLogger), nil
}

func main() {
	cliApp := &CLI{}
	ctx := kong.Parse(cliApp,
		kong.Name("idseq"),
		kong.Description("A batched durable allocator for compact event identifiers"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	lg, err := createLogger(cliApp.LogOpts)
	if err != nil {
		ctx.FatalIfErrorf(err)
	}

	defer func() {
		if c, ok := lg.(logger.Closeable); ok {
			_ = c.Close()
		}
	}()

	err = ctx.Run(&cli.RunCtx{Logger: lg})
	ctx.FatalIfErrorf(err)
}
