package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Render formats accepted by `tilemesh render --format`
const (
	FormatPNG       = "png"
	FormatSVG       = "svg"
	FormatLayoutPNG = "layout-png"
	FormatGeoJSON   = "geojson"
	FormatASCII     = "ascii"
)

// AppOptions carries the parsed command line into the App
type AppOptions struct {
	ConfigFile string
	CacheFile  string
	NoCache    bool
	Verbose    bool

	// solve
	JSON    bool
	Workers int

	// render
	Format     string
	OutputFile string

	// init
	Force bool

	// serve
	HTTPMode  bool
	HTTPPort  int
	MQTTMode  bool
	WatchFile string
}

// Runner is implemented by App; tests substitute a mock
type Runner interface {
	ApplyOptions(opts AppOptions) error
	RunSolve(ctx context.Context, sources []string) error
	RunRender(ctx context.Context, source string) error
	RunServe(ctx context.Context) error
	RunInit(ctx context.Context, path string) error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp(os.Stdout)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and dispatches to app. Output goes to out.
func run(args []string, out io.Writer, app Runner) error {
	cmd := newRootCmd(out, app)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func newRootCmd(out io.Writer, app Runner) *cobra.Command {
	var opts AppOptions

	root := &cobra.Command{
		Use:   "tilemesh",
		Short: "Assemble square tile corpora and search the composite for a marker",
		Long: `tilemesh reassembles a corpus of square tiles whose borders match,
reports the product of the four corner IDs, strips the tile borders into a
composite image and counts the filled cells not covered by the marker
pattern (the sea monster by default).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.SetVersionTemplate("tilemesh version: {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	pf.StringVar(&opts.CacheFile, "cache", "", "Path to layout cache file (default from config, then .layout-cache.json)")
	pf.BoolVar(&opts.NoCache, "no-cache", false, "Neither read nor write the layout cache")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	solveCmd := &cobra.Command{
		Use:   "solve FILE|URL...",
		Short: "Solve one or more corpora and print checksum and roughness",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Workers < 1 {
				return fmt.Errorf("--workers must be at least 1")
			}
			if err := app.ApplyOptions(opts); err != nil {
				return err
			}
			return app.RunSolve(cmd.Context(), args)
		},
	}
	solveCmd.Flags().BoolVar(&opts.JSON, "json", false, "Print results as JSON")
	solveCmd.Flags().IntVar(&opts.Workers, "workers", 4, "Number of corpora solved concurrently")

	renderCmd := &cobra.Command{
		Use:   "render FILE|URL",
		Short: "Solve a corpus and render the composite or layout",
		Long: `Render formats:
  png         composite grid with marker cells highlighted
  svg         assembled layout, every tile with its border ring
  layout-png  the svg layout rasterized
  geojson     tile and marker polygons
  ascii       composite grid as text (stdout unless --output is set)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Format {
			case FormatPNG, FormatSVG, FormatLayoutPNG, FormatGeoJSON, FormatASCII:
			default:
				return fmt.Errorf("unknown render format %q", opts.Format)
			}
			if err := app.ApplyOptions(opts); err != nil {
				return err
			}
			return app.RunRender(cmd.Context(), args[0])
		},
	}
	renderCmd.Flags().StringVarP(&opts.Format, "format", "f", FormatPNG, "Output format: png, svg, layout-png, geojson or ascii")
	renderCmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "Output file (default depends on format)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the service: HTTP endpoints, MQTT corpus subscription, file watch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.HTTPMode && !opts.MQTTMode && opts.WatchFile == "" {
				return fmt.Errorf("serve needs at least one of --http, --mqtt or --watch")
			}
			if err := app.ApplyOptions(opts); err != nil {
				return err
			}
			return app.RunServe(cmd.Context())
		},
	}
	serveCmd.Flags().BoolVar(&opts.HTTPMode, "http", false, "Serve results over HTTP")
	serveCmd.Flags().IntVar(&opts.HTTPPort, "http-port", 0, "HTTP port (default from config, then 4040)")
	serveCmd.Flags().BoolVar(&opts.MQTTMode, "mqtt", false, "Solve corpora received on the configured MQTT topic")
	serveCmd.Flags().StringVar(&opts.WatchFile, "watch", "", "Solve FILE now and again whenever it changes")

	initCmd := &cobra.Command{
		Use:   "init [FILE]",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := app.ApplyOptions(opts); err != nil {
				return err
			}
			return app.RunInit(cmd.Context(), path)
		},
	}
	initCmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing file")

	root.AddCommand(solveCmd, renderCmd, serveCmd, initCmd)
	return root
}
