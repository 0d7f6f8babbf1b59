package main

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pthm/surface"
	surfaceecho "github.com/pthm/surface/adapters/echo"
	"github.com/pthm/surface/cmd/surface/internal/config"
	"github.com/pthm/surface/components/counter"
	"github.com/pthm/surface/lib/dom"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		if err := runServe(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "render":
		if err := runRender(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("surface version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`surface - stateful server-rendered components for Go

Usage:
  surface <command> [arguments]

Commands:
  serve [--addr ADDR]   Serve the counter demo over HTTP
  render [--flat] FILE  Upgrade the surfaces in an HTML page and print it
  version               Print version
  help                  Show this help

Configuration is read from surface.yaml in the working directory when
present. SURFACE_KEY (hex) overrides server.key.

Examples:
  surface serve --addr :3000
  surface render page.html
  surface render --flat page.html`)
}

func setup() (*config.Resolved, *slog.Logger, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Resolve(dir)
	if err != nil {
		return nil, nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, handlerOpts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runServe(args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--addr":
			if i+1 >= len(args) {
				return fmt.Errorf("--addr needs a value")
			}
			i++
			cfg.Addr = args[i]
		default:
			return fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	key := cfg.Key
	if cfg.EphemeralKey {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		logger.Warn("no server.key configured, tokens will not survive a restart")
	}

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	reg := surfaceecho.Mount(e,
		surfaceecho.WithKey(key),
		surfaceecho.WithPath(cfg.Prefix),
		surfaceecho.WithLogger(logger),
	)
	counter.Define(reg)

	e.GET("/", func(c echo.Context) error {
		return surfaceecho.Render(c, surface.Page(cfg.Title,
			reg.Mount(counter.Tag),
			reg.Mount(counter.Tag, dom.Attr("value", "10")),
		))
	})

	logger.Info("serving", "addr", cfg.Addr, "prefix", reg.Prefix(), "surfaces", reg.Tags())
	return e.Start(cfg.Addr)
}

func runRender(args []string) error {
	_, logger, err := setup()
	if err != nil {
		return err
	}

	mode := dom.RenderDeclarative
	var path string
	for _, arg := range args {
		if arg == "--flat" {
			mode = dom.RenderFlat
		} else {
			path = arg
		}
	}
	if path == "" {
		return fmt.Errorf("render needs an HTML file")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reg := surface.NewRegistry([]byte("render"), surface.WithRegistryLogger(logger))
	counter.Define(reg)

	doc, err := surface.ParseDocument(reg, f)
	if err != nil {
		return err
	}
	logger.Debug("upgraded document", "file", path, "surfaces", len(doc.Surfaces()))

	var buf bytes.Buffer
	if err := doc.Render(&buf, mode); err != nil {
		return err
	}
	_, err = fmt.Println(dom.Pretty(buf.String()))
	return err
}
