package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kwv/tilemesh/mesh"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *mesh.Config
	Cache      *mesh.LayoutCache
	Marker     mesh.Marker
	Tracker    *mesh.ResultTracker
	MQTTClient *mesh.MQTTClient
	Logger     *zap.Logger
	Out        io.Writer

	opts      AppOptions
	cachePath string
	saveMu    sync.Mutex

	pubMu     sync.RWMutex
	publisher *mesh.Publisher
}

// NewApp creates a new App instance writing user-facing output to out
func NewApp(out io.Writer) *App {
	return &App{
		Tracker: mesh.NewResultTracker(),
		Logger:  zap.NewNop(),
		Out:     out,
	}
}

// ApplyOptions applies CLI options and builds the logger
func (a *App) ApplyOptions(opts AppOptions) error {
	a.opts = opts
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.Logger = logger
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// prepare loads config, marker and layout cache. The config file is only
// required for service mode; CLI runs fall back to DefaultConfig.
func (a *App) prepare(configRequired bool) error {
	if err := a.loadConfig(configRequired); err != nil {
		return err
	}
	marker, err := a.Config.LoadMarker()
	if err != nil {
		return fmt.Errorf("loading marker: %w", err)
	}
	a.Marker = marker
	a.loadCache()
	return nil
}

func (a *App) loadConfig(required bool) error {
	if a.Config != nil {
		return nil
	}
	path := a.opts.ConfigFile
	if !required {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			a.Logger.Debug("no config file, using defaults", zap.String("path", path))
			a.Config = mesh.DefaultConfig()
			return nil
		}
	}

	config, err := mesh.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.Config = config
	a.Logger.Info("loaded config", zap.String("path", path))
	return nil
}

func (a *App) loadCache() {
	if a.opts.NoCache {
		return
	}
	a.cachePath = a.opts.CacheFile
	if a.cachePath == "" {
		a.cachePath = a.Config.CacheFile
	}
	if a.cachePath == "" {
		a.cachePath = mesh.DefaultLayoutCachePath
	}

	cache, err := mesh.LoadLayoutCache(a.cachePath)
	switch {
	case err != nil:
		a.Logger.Warn("ignoring unreadable layout cache", zap.String("path", a.cachePath), zap.Error(err))
		cache = mesh.NewLayoutCache()
	case cache == nil:
		cache = mesh.NewLayoutCache()
	default:
		a.Logger.Info("loaded layout cache", zap.String("path", a.cachePath), zap.Int("layouts", cache.Len()))
	}
	a.Cache = cache
}

func (a *App) saveCache() {
	if a.Cache == nil || a.cachePath == "" || a.Cache.Len() == 0 {
		return
	}
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	if err := mesh.SaveLayoutCache(a.cachePath, a.Cache); err != nil {
		a.Logger.Warn("saving layout cache failed", zap.String("path", a.cachePath), zap.Error(err))
	}
}

func (a *App) newSolver(source string) *mesh.Solver {
	opts := []mesh.Option{
		mesh.WithLogger(a.Logger.With(zap.String("source", source))),
		mesh.WithMarker(a.Marker),
		mesh.WithSource(source),
	}
	if a.Cache != nil {
		opts = append(opts, mesh.WithLayoutCache(a.Cache))
	}
	return mesh.NewSolver(opts...)
}

// solveSource solves a corpus file or, for http(s) sources, a downloaded corpus
func (a *App) solveSource(ctx context.Context, source string) (*mesh.Solution, error) {
	glyphs := a.Config.GetGlyphs()
	if !mesh.IsRemoteSource(source) {
		return a.newSolver(source).SolveFile(ctx, source, glyphs)
	}

	corpus, err := mesh.FetchCorpus(ctx, source, mesh.WithFetchGlyphs(glyphs))
	if err != nil {
		return nil, err
	}
	sol, err := a.newSolver(source).Solve(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("solving %s: %w", source, err)
	}
	return sol, nil
}

// RunSolve solves every source, several at a time, and prints the results
// in argument order.
func (a *App) RunSolve(ctx context.Context, sources []string) error {
	if err := a.prepare(false); err != nil {
		return err
	}
	defer a.saveCache()

	solutions := make([]*mesh.Solution, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(max(a.opts.Workers, 1))
	for i, source := range sources {
		g.Go(func() error {
			sol, err := a.solveSource(ctx, source)
			solutions[i], errs[i] = sol, err
			return err
		})
	}
	firstErr := g.Wait()

	if a.opts.JSON {
		results := make([]mesh.Result, 0, len(sources))
		for _, sol := range solutions {
			if sol != nil {
				results = append(results, sol.Result)
			}
		}
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
	} else {
		for i, sol := range solutions {
			if i > 0 {
				fmt.Fprintln(a.Out)
			}
			if errs[i] != nil {
				fmt.Fprintf(a.Out, "%s\nerror: %v\n", sources[i], errs[i])
				continue
			}
			fmt.Fprint(a.Out, mesh.FormatSummary(sol.Result))
		}
	}

	if firstErr != nil {
		failed := 0
		for _, err := range errs {
			if err != nil {
				failed++
			}
		}
		return fmt.Errorf("%d of %d corpora failed: %w", failed, len(sources), firstErr)
	}
	return nil
}

func defaultOutput(format string) string {
	switch format {
	case FormatPNG:
		return "composite.png"
	case FormatSVG:
		return "layout.svg"
	case FormatLayoutPNG:
		return "layout.png"
	case FormatGeoJSON:
		return "layout.geojson"
	default:
		return "-"
	}
}

// RunRender solves one source and writes it in the selected format.
// An output of "-" writes to the App's output stream.
func (a *App) RunRender(ctx context.Context, source string) error {
	if err := a.prepare(false); err != nil {
		return err
	}
	defer a.saveCache()

	sol, err := a.solveSource(ctx, source)
	if err != nil {
		return err
	}

	var data bytes.Buffer
	switch a.opts.Format {
	case FormatPNG:
		var r *mesh.CompositeRenderer
		if r, err = newCompositeRenderer(sol, a.Config); err == nil {
			err = r.WritePNG(&data)
		}
	case FormatSVG, FormatLayoutPNG:
		var r *mesh.LayoutRenderer
		if r, err = newLayoutRenderer(sol, a.Config); err == nil {
			if a.opts.Format == FormatSVG {
				err = r.RenderToSVG(&data)
			} else {
				err = r.RenderToPNG(&data)
			}
		}
	case FormatGeoJSON:
		var b []byte
		if b, err = mesh.MarshalLayoutGeoJSON(sol.Assembled, &sol.Search); err == nil {
			data.Write(b)
		}
	case FormatASCII:
		data.WriteString(mesh.RenderTerminal(sol.Search, a.Config.GetGlyphs()))
	default:
		return fmt.Errorf("unknown render format %q", a.opts.Format)
	}
	if err != nil {
		return fmt.Errorf("rendering %s: %w", a.opts.Format, err)
	}

	output := a.opts.OutputFile
	if output == "" {
		output = defaultOutput(a.opts.Format)
	}
	if output == "-" {
		_, err := a.Out.Write(data.Bytes())
		return err
	}
	if err := os.WriteFile(output, data.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	a.Logger.Info("rendered", zap.String("format", a.opts.Format), zap.String("output", output))
	fmt.Fprintf(a.Out, "%s written to %s\n", a.opts.Format, output)
	return nil
}

// RunInit writes the default configuration to path
func (a *App) RunInit(_ context.Context, path string) error {
	if _, err := os.Stat(path); err == nil && !a.opts.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := mesh.SaveConfig(path, mesh.DefaultConfig()); err != nil {
		return err
	}
	a.Logger.Info("wrote default config", zap.String("path", path))
	fmt.Fprintf(a.Out, "config written to %s\n", path)
	return nil
}

func (a *App) setPublisher(p *mesh.Publisher) {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()
	a.publisher = p
}

func (a *App) getPublisher() *mesh.Publisher {
	a.pubMu.RLock()
	defer a.pubMu.RUnlock()
	return a.publisher
}

// record stores a solve outcome, publishes it when MQTT is up and persists
// the layout cache.
func (a *App) record(source string, sol *mesh.Solution, err error) {
	publisher := a.getPublisher()
	if err != nil {
		a.Logger.Warn("solve failed", zap.String("source", source), zap.Error(err))
		a.Tracker.RecordError(source, err)
		if publisher != nil {
			if perr := publisher.PublishError(source, err); perr != nil {
				a.Logger.Warn("publishing error notice failed", zap.Error(perr))
			}
		}
		return
	}

	a.Tracker.Update(sol)
	a.Logger.Info("solved corpus",
		zap.String("source", source),
		zap.String("runId", sol.Result.RunID),
		zap.Uint64("checksum", sol.Result.Checksum),
		zap.Int("roughness", sol.Result.Roughness),
		zap.Bool("fromCache", sol.Result.FromCache))
	if publisher != nil {
		if err := publisher.PublishResult(sol.Result); err != nil {
			a.Logger.Warn("publishing result failed", zap.Error(err))
		}
	}
	a.saveCache()
}

func (a *App) solveAndRecord(ctx context.Context, source string) {
	sol, err := a.solveSource(ctx, source)
	a.record(source, sol, err)
}

// corpusHandler solves corpora received over MQTT
func (a *App) corpusHandler(ctx context.Context) mesh.CorpusHandler {
	return func(source string, corpus mesh.Corpus, err error) {
		if err != nil {
			a.record(source, nil, fmt.Errorf("decoding corpus: %w", err))
			return
		}
		sol, err := a.newSolver(source).Solve(ctx, corpus)
		a.record(source, sol, err)
	}
}

// RunServe runs until interrupted
func (a *App) RunServe(ctx context.Context) error {
	if err := a.prepare(true); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	defer a.saveCache()
	g, ctx := errgroup.WithContext(ctx)

	if a.opts.MQTTMode {
		client, err := mesh.InitMQTT(a.Config, a.corpusHandler(ctx), a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize MQTT: %w", err)
		}
		if client == nil {
			return fmt.Errorf("MQTT broker not configured (set mqtt.broker or MQTT_BROKER)")
		}
		a.MQTTClient = client
		defer client.Disconnect()
		a.setPublisher(mesh.NewPublisher(client.GetClient(), a.Config.MQTT.PublishPrefix, a.Logger))
	}

	if a.opts.WatchFile != "" {
		file := a.opts.WatchFile
		a.solveAndRecord(ctx, file)

		watcher, err := mesh.NewCorpusWatcher(file, func(string) { a.solveAndRecord(ctx, file) }, a.Logger)
		if err != nil {
			return fmt.Errorf("watching %s: %w", file, err)
		}
		if err := watcher.Start(ctx); err != nil {
			watcher.Stop()
			return fmt.Errorf("watching %s: %w", file, err)
		}
		defer watcher.Stop()
	}

	port := 0
	if a.opts.HTTPMode {
		port = a.opts.HTTPPort
		if port == 0 {
			port = a.Config.HTTP.Port
		}
		if port == 0 {
			port = mesh.DefaultHTTPPort
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", port),
			Handler:           newHTTPServer(a.Tracker, a.Config, a.Logger),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		g.Go(func() error {
			a.Logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	a.printServiceInfo(port)

	<-ctx.Done()
	a.Logger.Info("shutting down service")
	return g.Wait()
}

func (a *App) printServiceInfo(port int) {
	fmt.Fprintln(a.Out, "tilemesh service running")

	if a.opts.MQTTMode {
		prefix := a.getPublisher().Prefix()
		fmt.Fprintln(a.Out, "\nMQTT:")
		fmt.Fprintf(a.Out, "  Subscribed topic: %s\n", a.Config.MQTT.CorpusTopic)
		fmt.Fprintf(a.Out, "  Latest result:    %s/result\n", prefix)
		fmt.Fprintf(a.Out, "  Per-run results:  %s/runs/{runId}\n", prefix)
		fmt.Fprintf(a.Out, "  Failures:         %s/error\n", prefix)
	}

	if a.opts.WatchFile != "" {
		fmt.Fprintf(a.Out, "\nWatching %s\n", a.opts.WatchFile)
	}

	if a.opts.HTTPMode {
		fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", port)
		fmt.Fprintln(a.Out, "  GET /               - Status page")
		fmt.Fprintln(a.Out, "  GET /health         - Health check")
		fmt.Fprintln(a.Out, "  GET /result.json    - Latest result")
		fmt.Fprintln(a.Out, "  GET /history.json   - Recent results")
		fmt.Fprintln(a.Out, "  GET /composite.png  - Composite with marker cells highlighted")
		fmt.Fprintln(a.Out, "  GET /layout.svg     - Assembled layout")
		fmt.Fprintln(a.Out, "  GET /layout.png     - Assembled layout, rasterized")
		fmt.Fprintln(a.Out, "  GET /layout.geojson - Tile and marker polygons")
		fmt.Fprintln(a.Out, "  GET /ws             - Websocket stream of results")
	}

	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")
}
