package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"rhystmorgan/contactbook/internal/api"
	"rhystmorgan/contactbook/internal/config"
	"rhystmorgan/contactbook/internal/export"
	"rhystmorgan/contactbook/internal/logging"
	"rhystmorgan/contactbook/internal/prompt"
	"rhystmorgan/contactbook/internal/telemetry"
	"rhystmorgan/contactbook/internal/views"
)

var (
	configPath   string
	apiURL       string
	debug        bool
	exportFormat string
	exportSearch string
	exportOutput string
)

var rootCmd = &cobra.Command{
	Use:          "contactterm",
	Short:        "Browse and edit the contacts address book from the terminal",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup()
		if err != nil {
			return err
		}
		defer env.Close()

		client, err := env.Client()
		if err != nil {
			return err
		}

		app := views.NewAppModel(client, env.cfg, views.WithLogger(env.logger))
		p := tea.NewProgram(app,
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running application: %w", err)
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a contact with line-by-line prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup()
		if err != nil {
			return err
		}
		defer env.Close()

		client, err := env.Client()
		if err != nil {
			return err
		}

		_, err = prompt.New(client, prompt.WithLogger(env.logger)).Run(cmd.Context())
		switch {
		case errors.Is(err, prompt.ErrNotSaved), errors.Is(err, prompt.ErrAborted):
			fmt.Fprintln(cmd.OutOrStdout(), "Contact not saved.")
			return nil
		case err != nil:
			return err
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every contact matching a search as JSON or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		env, err := setup()
		if err != nil {
			return err
		}
		defer env.Close()

		client, err := env.Client()
		if err != nil {
			return err
		}

		exporter := export.NewExporter(client, export.Options{Format: format, Search: exportSearch}, export.WithLogger(env.logger))
		if exportOutput == "" || exportOutput == "-" {
			_, err = exporter.Export(cmd.Context(), cmd.OutOrStdout())
			return err
		}

		n, err := exporter.ExportToFile(cmd.Context(), exportOutput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d contacts to %s\n", n, exportOutput)
		return nil
	},
}

// environment is what every command needs: config, the log file and, with
// --debug, a tracer provider exporting request spans into that file.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.WriteCloser
	tp     *sdktrace.TracerProvider
}

func setup() (*environment, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, out, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("error opening log: %w", err)
	}
	env := &environment{cfg: cfg, logger: logger, out: out}

	if cfg.Debug {
		tp, err := telemetry.NewTracerProvider(out)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("error initializing tracing: %w", err)
		}
		env.tp = tp
	}

	logger.Info("starting", "api_url", cfg.APIURL, "debug", cfg.Debug, "tracing", env.tp != nil)
	return env, nil
}

func (e *environment) Client() (*api.Client, error) {
	opts := []api.Option{api.WithLogger(e.logger)}
	if e.tp != nil {
		opts = append(opts, api.WithTracerProvider(e.tp))
	}
	client, err := api.NewClient(e.cfg.ToAPIConfig(), opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing contacts client: %w", err)
	}
	return client, nil
}

// Close flushes pending spans before the log file they are written to.
func (e *environment) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx, e.tp); err != nil {
		e.logger.Warn("failed to flush traces", "error", err)
	}
	_ = e.out.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file (default ~/.contactbook/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Contacts API collection URL")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Log at debug level")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json or csv")
	exportCmd.Flags().StringVarP(&exportSearch, "search", "s", "", "Only export contacts whose name matches")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "File to write, or - for stdout")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
