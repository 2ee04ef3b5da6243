/*
Runs the testbed game on the headless device: every frame graph is declared,
compiled and executed, without a window.
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/headless"
	"github.com/spaghettifunk/framegraph/testbed"
)

type runOptions struct {
	configPath  string
	frames      uint64
	shaderDir   string
	metricsAddr string
	logLevel    string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "framegraph",
		Short:         "Declarative per-frame GPU work scheduling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.AddCommand(newRunCommand(), newConfigCommand())
	return cmd
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the testbed frame loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(cmd, opts); err != nil {
				core.LogError("%s", err.Error())
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a TOML engine config")
	cmd.Flags().Uint64Var(&opts.frames, "frames", 0, "Stop after this many frames, 0 runs until interrupted")
	cmd.Flags().StringVar(&opts.shaderDir, "shader-dir", "", "Watch this directory for shader hot reload")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "One of debug, info, warn, error")
	return cmd
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default engine config",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := toml.Marshal(core.DefaultConfig())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func loadConfig(cmd *cobra.Command, opts *runOptions) (*core.EngineConfig, error) {
	config := core.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if config, err = core.LoadConfig(opts.configPath); err != nil {
			return nil, err
		}
	}
	// flags win over the file
	if cmd.Flags().Changed("frames") {
		config.Application.Frames = opts.frames
	}
	if opts.shaderDir != "" {
		config.Pipelines.ShaderDir = opts.shaderDir
	}
	if opts.logLevel != "" {
		config.Application.LogLevel = opts.logLevel
	}
	return config, config.Validate()
}

func run(cmd *cobra.Command, opts *runOptions) error {
	config, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	metrics := core.NewMetrics()
	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, metrics)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	tb := testbed.NewTestGame(config)
	e, err := engine.New(tb.Game, headless.NewDevice(), metrics)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		return errors.Join(err, e.Shutdown())
	}

	// signal channel to capture system calls
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	core.LogInfo("%d frames, %.1f fps, %.3f ms per frame", e.Frames(), metrics.FPS(), metrics.FrameTimeMS())
	return errors.Join(runErr, e.Shutdown())
}

func serveMetrics(addr string, metrics *core.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		core.LogInfo("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.LogError("metrics server: %s", err.Error())
		}
	}()
	return srv
}
