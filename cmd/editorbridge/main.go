// Package main is the entry point for the editor bridge host.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/bridge"
	"github.com/dshills/editorbridge/internal/config"
	"github.com/dshills/editorbridge/internal/host"
	"github.com/dshills/editorbridge/internal/jsonedit"
	"github.com/dshills/editorbridge/internal/loader"
	"github.com/dshills/editorbridge/internal/logging"
	"github.com/dshills/editorbridge/internal/preview"
	"github.com/dshills/editorbridge/internal/transport"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath  string
	contentPath string
	module      string
	moduleName  string
	noRich      bool
	listen      string
	tui         bool
	watch       bool
	jsonMode    bool
	logLevel    string
	logJSON     bool
	metrics     string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(opts.logLevel),
		Output: os.Stderr,
		Name:   "editorbridge",
		JSON:   opts.logJSON,
	})
	defer func() { _ = logger.Sync() }()
	logging.Set(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	raw, err := config.ReadFile(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	raw = config.ApplyEnv(raw, os.LookupEnv)

	content := ""
	if opts.contentPath != "" {
		data, err := os.ReadFile(opts.contentPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: reading content: %v\n", err)
			return 1
		}
		content = string(data)
	}

	var adapterOpts []transport.Option
	adapterOpts = append(adapterOpts, transport.WithLogger(logger))
	if opts.metrics != "" {
		reg := prometheus.NewRegistry()
		m, err := transport.NewMetrics(reg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: metrics: %v\n", err)
			return 1
		}
		adapterOpts = append(adapterOpts, transport.WithMetrics(m))
		srv := serveHTTP(opts.metrics, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger)
		defer shutdown(srv)
	}

	// The WebSocket host takes priority over stdout when both are present.
	var channels []transport.Channel
	var wsChannel *transport.WebSocketChannel
	if opts.listen != "" {
		wsChannel = transport.NewWebSocketChannel("websocket")
		channels = append(channels, wsChannel)
	}
	var stdout *transport.WriterChannel
	if !opts.tui {
		stdout = transport.NewWriterChannel("stdout", os.Stdout)
		channels = append(channels, stdout)
	}
	adapter := transport.NewAdapter(channels, adapterOpts...)
	logger.Info("transport configured",
		zap.Int("channels", len(channels)),
		zap.String("active", adapter.Active()))

	var dispatcher *host.Dispatcher
	var surface bridge.Surface
	var previewed *bridge.Editor
	if opts.jsonMode {
		je := jsonedit.New(jsonedit.ParseConfig(raw), content, adapter, jsonedit.WithLogger(logger))
		defer func() { _ = je.Close() }()
		dispatcher = host.NewJSONEditDispatcher(je, host.WithLogger(logger))
	} else {
		editor, err := bridge.Bootstrap(ctx, bridge.Options{
			Config:    config.FromMap(raw),
			Content:   content,
			Loader:    buildLoader(opts),
			Transport: adapter,
			Logger:    logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer func() { _ = editor.Close() }()
		dispatcher = host.NewDispatcher(editor, host.WithLogger(logger))
		surface = editor
		previewed = editor
	}

	if opts.watch && opts.contentPath != "" && surface != nil {
		w, err := host.NewContentWatcher(opts.contentPath, surface, host.DefaultReloadDelay, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: watching content: %v\n", err)
			return 1
		}
		defer func() { _ = w.Close() }()
	}

	if wsChannel != nil {
		ws := host.NewWSServer(dispatcher, wsChannel, logger)
		srv := serveHTTP(opts.listen, ws, logger)
		defer func() {
			_ = ws.Close()
			shutdown(srv)
		}()
	}

	switch {
	case opts.tui && previewed != nil:
		screen, serr := tcell.NewScreen()
		if serr != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", serr)
			return 1
		}
		err = preview.Run(ctx, screen, previewed)
	case stdout != nil && opts.listen == "":
		err = host.NewStdioServer(dispatcher, os.Stdin, stdout, logger).Serve(ctx)
	default:
		<-ctx.Done()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func buildLoader(opts options) loader.Loader {
	switch {
	case opts.noRich:
		return nil
	case opts.module == "":
		return loader.BuiltinLoader{}
	default:
		return loader.LuaLoader{Resolver: loader.ResolverFor(opts.module), Name: opts.moduleName}
	}
}

func serveHTTP(addr string, h http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "", "Path to host configuration file (json, toml or yaml)")
	flag.StringVar(&opts.contentPath, "content", "", "Path to the initial document")
	flag.StringVar(&opts.module, "module", "", "Rich backend module directory or http(s) base URL")
	flag.StringVar(&opts.moduleName, "module-name", "editor", "Module to load from -module")
	flag.BoolVar(&opts.noRich, "no-rich", false, "Skip the rich backend and use the fallback")
	flag.StringVar(&opts.listen, "listen", "", "Serve WebSocket hosts on this address")
	flag.BoolVar(&opts.tui, "tui", false, "Show a terminal preview of the editor")
	flag.BoolVar(&opts.watch, "watch", false, "Reload -content when it changes on disk")
	flag.BoolVar(&opts.jsonMode, "json", false, "Run the validating JSON editor")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.logJSON, "log-json", false, "Write logs as JSON")
	flag.StringVar(&opts.metrics, "metrics", "", "Serve Prometheus metrics on this address")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "editorbridge - embeddable code editor bridge\n\n")
		fmt.Fprintf(os.Stderr, "Usage: editorbridge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  editorbridge -content doc.json                 Serve calls on stdin/stdout\n")
		fmt.Fprintf(os.Stderr, "  editorbridge -listen :8790 -module ./modules   Serve WebSocket hosts\n")
		fmt.Fprintf(os.Stderr, "  editorbridge -tui -content main.go             Preview in the terminal\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("editorbridge %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.logLevel {
	case "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	return opts
}
