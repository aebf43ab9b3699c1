// Command jep-backend-sample is a minimal JEP backend: it binds a port,
// announces it on stdout, logs the completion requests and content syncs a
// frontend sends, and serves static syntax requests out of a directory of
// syntax files.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/jointeditors/jep/daemonconfig"
	"github.com/jointeditors/jep/server"
	"github.com/jointeditors/jep/server/monitor"
	"github.com/jointeditors/jep/wire"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "-h", "--help", "help":
		printUsage()
		return
	case "run":
		runBackend(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `jep-backend-sample

Usage:
  jep-backend-sample run [flags]

Flags:
  -config <path>       daemon settings YAML file (port range, timeouts, syntax dir, dashboard addr)
  -syntax-dir <path>   directory of static syntax definition files to serve (overrides -config)
  -dashboard-addr <addr>  HTTP address for the operator dashboard websocket, e.g. 127.0.0.1:9500 (disabled if empty, overrides -config)
  -env <env>           development|production (default production)
  -verbose             verbose logging
`)
}

func runBackend(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "daemon settings YAML file")
	syntaxDir := fs.String("syntax-dir", "", "directory of static syntax definitions")
	dashboardAddr := fs.String("dashboard-addr", "", "HTTP address for the operator dashboard websocket")
	env := fs.String("env", "production", "development|production")
	verbose := fs.Bool("verbose", false, "verbose logging")
	_ = fs.Parse(args)

	levels := logger.AllLevels()
	if !*verbose {
		levels = []logger.Level{logger.InfoLevel, logger.NoticeLevel, logger.WarnLevel, logger.ErrorLevel, logger.CritLevel, logger.AlertLevel, logger.EmergLevel, logger.FatalLevel}
	}
	logger.Init(logger.Config{
		Levels:   levels,
		Colorize: *env == "development",
	})

	settings, err := daemonconfig.Load(*configPath)
	if err != nil {
		logger.ErrorKV("failed to load daemon config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if *syntaxDir != "" {
		settings.SyntaxDir = *syntaxDir
	}
	if *dashboardAddr != "" {
		settings.DashboardAddr = *dashboardAddr
	}

	srv := server.New(server.Config{
		PortRangeStart: settings.PortRangeStart,
		PortRangeEnd:   settings.PortRangeEnd,
		AliveInterval:  settings.AliveInterval,
		IdleTimeout:    settings.IdleTimeout,
	}, &loggingListener{})

	if settings.SyntaxDir != "" {
		if err := srv.Syntax.LoadDir(settings.SyntaxDir); err != nil {
			logger.ErrorKV("failed to load syntax directory", "path", settings.SyntaxDir, "error", err)
		}
	}

	if settings.DashboardAddr != "" {
		dash := monitor.NewMonitor()
		srv.Monitor = dash
		mux := http.NewServeMux()
		mux.Handle("/ws", dash)
		go func() {
			if err := http.ListenAndServe(settings.DashboardAddr, mux); err != nil {
				logger.ErrorKV("dashboard http server exited", "error", err)
			}
		}()
		logger.Infof("operator dashboard listening at ws://%s/ws", settings.DashboardAddr)
	}

	if err := srv.Start(); err != nil {
		logger.ErrorKV("backend failed to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		logger.ErrorKV("backend run loop exited with error", "error", err)
		os.Exit(1)
	}
}

// loggingListener logs completion requests and content syncs; the other
// frontend messages fall through to no-op defaults. A real backend
// would replace this with an analysis pass issuing CompletionResponse and
// ProblemUpdate messages.
type loggingListener struct {
	wire.DefaultFrontendListener
}

func (loggingListener) OnCompletionRequest(m *wire.CompletionRequest) {
	logger.Debugf("completion requested in %s at %d", m.File, m.Pos)
}

func (loggingListener) OnContentSync(m *wire.ContentSync) {
	logger.Debugf("content sync for %s (%d bytes)", m.File, len(m.Data))
}
