// Command jep-frontend-sample demonstrates the frontend side of JEP: given
// a file path, it resolves the matching .jep service configuration,
// connects to (and if needed launches) the backend, issues a single
// CompletionRequest, and prints the response.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/jointeditors/jep/frontend"
	"github.com/jointeditors/jep/serviceconfig"
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
	case "complete":
		runComplete(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `jep-frontend-sample

Usage:
  jep-frontend-sample complete [flags] <file> <pos>

Flags:
  -env <env>        development|production (default production)
  -verbose          verbose logging
  -timeout <dur>    request timeout (default 2s)
`)
}

func runComplete(args []string) {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	env := fs.String("env", "production", "development|production")
	verbose := fs.Bool("verbose", false, "verbose logging")
	timeout := fs.Duration("timeout", 2*time.Second, "request timeout")
	_ = fs.Parse(args)

	positional := fs.Args()
	if len(positional) < 2 {
		printUsage()
		os.Exit(2)
	}
	file := positional[0]
	var pos int
	if _, err := fmt.Sscanf(positional[1], "%d", &pos); err != nil {
		fmt.Fprintf(os.Stderr, "invalid position %q: %v\n", positional[1], err)
		os.Exit(2)
	}

	levels := logger.AllLevels()
	if !*verbose {
		levels = []logger.Level{logger.InfoLevel, logger.NoticeLevel, logger.WarnLevel, logger.ErrorLevel, logger.CritLevel, logger.AlertLevel, logger.EmergLevel, logger.FatalLevel}
	}
	logger.Init(logger.Config{
		Levels:   levels,
		Colorize: *env == "development",
	})

	registry := frontend.NewRegistry(serviceconfig.Resolver{}, frontend.Config{}, nil)
	conn, err := registry.GetConnection(file)
	if err != nil {
		logger.ErrorKV("no backend available for file", "file", file, "error", err)
		os.Exit(1)
	}

	// Give the connector time to launch the backend and complete the TCP
	// handshake before issuing the request.
	conn.Run(10 * time.Second)

	if conn.State() != frontend.Connected {
		logger.Errorf("backend did not reach Connected state in time")
		os.Exit(1)
	}

	resp := conn.RequestMessage(&wire.CompletionRequest{File: file, Pos: pos}, *timeout)
	if resp == nil {
		logger.Errorf("no completion response within %s", *timeout)
		os.Exit(1)
	}

	completion, ok := resp.(*wire.CompletionResponse)
	if !ok {
		logger.ErrorKV("unexpected response type", "type", resp.MessageName())
		os.Exit(1)
	}

	for _, opt := range completion.Options {
		fmt.Println(opt.Insert)
	}
}
