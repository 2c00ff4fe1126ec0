// Command strand runs a .strand workflow file.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"github.com/strandlang/strand/config"
	"github.com/strandlang/strand/engine"
	"github.com/strandlang/strand/internal/reporter"
	"github.com/strandlang/strand/interp"
	"github.com/strandlang/strand/parser"
	"github.com/strandlang/strand/provider/factory"
	"github.com/strandlang/strand/provider/mock"
	"github.com/strandlang/strand/tool"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath   string
		useMock      bool
		mockResponse string
		timeout      time.Duration
		render       bool
		logLevel     string
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.BoolVar(&useMock, "mock", false, "answer every agent run with the mock provider")
	flag.StringVar(&mockResponse, "mock-response", "", "canned response for -mock")
	flag.DurationVar(&timeout, "timeout", 0, "overall run deadline, e.g. 2m (0 means none)")
	flag.BoolVar(&render, "render", false, "render program output as markdown")
	flag.StringVar(&logLevel, "log-level", "", "override the configured log level")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		return 2
	}
	filename := flag.Arg(0)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), err)
		return 1
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	setupLogging(cfg.Log)

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), err)
		return 1
	}

	prog, err := parser.Parse(string(source))
	if err != nil {
		var serr *parser.SyntaxError
		if errors.As(err, &serr) {
			reporter.SyntaxError(os.Stderr, filename, string(source), serr)
		} else {
			fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), err)
		}
		return 1
	}

	var fact *factory.Factory
	if useMock {
		if mockResponse != "" {
			fact = factory.Forced(mock.WithResponse(mockResponse))
		} else {
			fact = factory.Forced(mock.New())
		}
	} else {
		fact = factory.New(cfg)
	}

	var stdout io.Writer = os.Stdout
	var rendered *bytes.Buffer
	if render {
		rendered = &bytes.Buffer{}
		stdout = rendered
	}

	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools)
	eng := engine.New(fact, tools)
	in, err := interp.New(
		interp.WithRunner(eng),
		interp.WithTools(tools),
		interp.WithStdout(stdout),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runErr := in.Run(ctx, prog)

	if render && rendered.Len() > 0 {
		if out, err := renderMarkdown(rendered.String()); err == nil {
			fmt.Print(out)
		} else {
			fmt.Print(rendered.String())
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), runErr)
		return 1
	}
	return 0
}

func setupLogging(cfg config.LogConfig) {
	var log zerolog.Logger
	if cfg.Format == "json" {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
		log = zerolog.New(output).With().Timestamp().Logger()
	}
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: parseLevel(cfg.Level)}),
	))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func renderMarkdown(text string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(text)
}

func usage() {
	fmt.Fprint(os.Stderr, "usage: strand [flags] <file.strand>\n\n")
	flag.PrintDefaults()
}
