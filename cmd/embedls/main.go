package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/jsvensson/embedls/internal/config"
	"github.com/jsvensson/embedls/internal/document"
	"github.com/jsvensson/embedls/internal/embedded"
	"github.com/jsvensson/embedls/internal/lsp"
	"github.com/jsvensson/embedls/internal/metrics"
	"github.com/jsvensson/embedls/internal/mode"
)

var (
	flagVerbose     int
	flagLogFile     string
	flagConfig      string
	flagMetricsAddr string
	flagLang        string
	flagCheck       bool
	version         = "dev" // Injected at build time via ldflags
)

var log = commonlog.GetLogger("embedls")

// errCheckFailed makes the process exit non-zero without another message.
var errCheckFailed = errors.New("formatting check failed")

var rootCmd = &cobra.Command{
	Use:     "embedls",
	Short:   "Language server for single-file components with embedded languages",
	Version: version,
	RunE:    runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdio",
	RunE:  runServe,
}

var projectCmd = &cobra.Command{
	Use:   "project FILE",
	Short: "Print the virtual document of one embedded language",
	Long:  "Print FILE with everything outside the blocks of the chosen language blanked, keeping line and column positions intact.",
	Args:  cobra.ExactArgs(1),
	RunE:  runProject,
}

var regionsCmd = &cobra.Command{
	Use:   "regions FILE",
	Short: "List the top-level blocks of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegions,
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [files...]",
	Short: "Format embedls.hcl files",
	Long:  "Format one or more embedls.hcl files in-place. Prints the name of each file that was modified.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFmt,

	SilenceErrors: true,
	SilenceUsage:  true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Print an embedls.hcl with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(config.Encode(config.Default()))
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (can be repeated)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write the log to a file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to an embedls.hcl file (default: workspace root)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	projectCmd.Flags().StringVar(&flagLang, "lang", mode.MarkupLanguage, "language or block kind to project")
	fmtCmd.Flags().BoolVarP(&flagCheck, "check", "c", false, "check if files are formatted (do not write changes)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(regionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.LoadFile(flagConfig, filepath.Dir(flagConfig))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	logFile := flagLogFile
	if logFile == "" {
		logFile = cfg.LogFile
	}
	var logPath *string
	if logFile != "" {
		logPath = &logFile
	}
	commonlog.Configure(1+flagVerbose, logPath)

	collector := metrics.NewCollector()
	if flagMetricsAddr != "" {
		srv, err := serveMetrics(flagMetricsAddr, collector)
		if err != nil {
			return err
		}
		defer srv.Close()
	}

	s, err := lsp.NewServer(version, lsp.Options{
		Config:     cfg,
		ConfigPath: flagConfig,
		Metrics:    collector,
		Components: mode.ScriptComponents{},
	})
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer s.Dispose()

	return s.Run()
}

func serveMetrics(addr string, collector *metrics.Collector) (*http.Server, error) {
	h, err := metrics.Handler(collector)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %s", err)
		}
	}()
	log.Infof("serving metrics on %s", addr)
	return srv, nil
}

func readDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return document.New(path, embedded.DefaultLanguage, 0, 0, string(data)), nil
}

func runProject(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), embedded.Project(doc, flagLang).Text())
	return nil
}

func runRegions(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range embedded.Scan(doc).All() {
		start, end := doc.PositionAt(r.Start), doc.PositionAt(r.End)
		fmt.Fprintf(out, "%-10s %-16s %d:%d-%d:%d\n",
			r.Kind, r.Language, start.Line+1, start.Character+1, end.Line+1, end.Character+1)
	}
	return nil
}

func runFmt(cmd *cobra.Command, args []string) error {
	hasErrors := false
	needsFormatting := false

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading %s: %v\n", path, err)
			hasErrors = true
			continue
		}

		formatted := config.Format(data)
		if string(formatted) == string(data) {
			continue
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)
		needsFormatting = true

		if !flagCheck {
			if err := os.WriteFile(path, formatted, 0o644); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error writing %s: %v\n", path, err)
				hasErrors = true
			}
		}
	}

	if hasErrors || (flagCheck && needsFormatting) {
		return errCheckFailed
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
