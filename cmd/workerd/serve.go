package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"workerd/internal/backend"
	"workerd/internal/config"
	"workerd/internal/httpapi"
	"workerd/internal/logging"
	"workerd/internal/manager"
	"workerd/internal/registry"
	"workerd/pkg/types"
)

type serveOptions struct {
	configPath  string
	addr        string
	modelsDir   string
	corsOrigins string
	llamaCtx    int
	gpuLayers   int
}

func buildServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the worker manager with its diagnostics API",
		Example: "  workerd serve --config workerd.yaml\n  workerd serve --addr :9090 --models-dir ~/models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd, root, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a YAML, TOML or JSON config file")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (default "+config.DefaultAddr+")")
	cmd.Flags().StringVar(&opts.modelsDir, "models-dir", "", "Directory to scan for model files (default "+config.DefaultModelsDir+")")
	cmd.Flags().StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; enables CORS when set")
	cmd.Flags().IntVar(&opts.llamaCtx, "llama-ctx", 2048, "Context size for language workers")
	cmd.Flags().IntVar(&opts.gpuLayers, "llama-gpu-layers", 99, "Layers offloaded when a language worker runs on a GPU backend")
	return cmd
}

// resolveServeConfig layers defaults, the config file and explicit flags.
func resolveServeConfig(cmd *cobra.Command, root *rootOptions, opts *serveOptions) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.modelsDir != "" {
		cfg.ModelsDir = opts.modelsDir
	}
	if origins := splitCSV(opts.corsOrigins); origins != nil {
		cfg.CORSEnabled = true
		cfg.CORSAllowedOrigins = origins
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = root.logLevel
	}
	if flags.Changed("log-format") || cfg.LogFormat == "" {
		cfg.LogFormat = root.logFormat
	}
	if flags.Changed("force-cpu") {
		cfg.ForceCPU = root.forceCPU
	}
	if flags.Changed("disable-native") {
		cfg.DisableNative = root.disableNative
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config, opts *serveOptions) error {
	log := logging.New(cfg.LogLevel, cfg.LogFormat, nil)
	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, nil, nil)

	models, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.ModelsDir).Msg("model scan failed; serving without models")
		models = nil
	}
	log.Info().Int("count", len(models)).Str("dir", cfg.ModelsDir).Msg("models discovered")

	loop := manager.NewOwnerLoop()
	ropts := &rootOptions{forceCPU: cfg.ForceCPU, disableNative: cfg.DisableNative}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Loader:       manager.NewLlamaLoader(opts.llamaCtx, runtime.NumCPU(), opts.gpuLayers),
		Probe:        ropts.probe(log),
		Logger:       &log,
		MaxWorkers:   cfg.MaxWorkers,
		MaxMemoryMB:  cfg.MaxMemoryMB,
		IdleTimeout:  cfg.IdleTimeout(),
		ReapInterval: cfg.ReapInterval(),
		Dispatcher:   loop,
		LoadOnOwner:  true,
		Publisher:    manager.NewLogPublisher(log),
	})
	caps := mgr.Initialize()
	log.Info().Str("best_backend", caps.BestBackend.String()).Bool("llama", manager.LlamaBuilt()).Msg("manager initialized")

	if err := mgr.LoadReports(cfg.ReportsPath); err != nil {
		log.Warn().Err(err).Str("path", cfg.ReportsPath).Msg("reports not restored")
	}

	svc := newService(mgr, models)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(svc), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		warm(runCtx, mgr, models, cfg.WarmModels, log)
		svc.ready.Store(true)
		mgr.StartReaper(runCtx, cfg.ReapInterval())
	}()
	go func() {
		select {
		case err := <-errCh:
			log.Error().Err(err).Msg("server error")
			cancel()
		case <-runCtx.Done():
		}
	}()

	// Runner disposal happens here, on the goroutine that owns the runtime.
	loop.Run(runCtx)

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	n := mgr.DisposeAll()
	loop.Drain()
	if err := mgr.SaveReports(cfg.ReportsPath); err != nil {
		log.Warn().Err(err).Str("path", cfg.ReportsPath).Msg("reports not saved")
	}
	log.Info().Int("disposed", n).Msg("stopped")
	return nil
}

// warm builds one specialized worker per listed model so the first request
// for that type skips construction.
func warm(ctx context.Context, mgr *manager.Manager, models []types.Model, ids []string, log zerolog.Logger) {
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		mdl, ok := registry.Find(models, id)
		if !ok {
			log.Warn().Str("model", id).Msg("warm model not found")
			continue
		}
		t := backend.ParseModelType(mdl.Type)
		w, err := mgr.CreateSpecializedWorker(ctx, t, mdl, backend.DefaultConfig())
		if err != nil {
			log.Warn().Err(err).Str("model", id).Msg("warm failed")
			continue
		}
		if err := mgr.Release(w); err != nil {
			log.Warn().Err(err).Str("model", id).Msg("release after warm failed")
		}
	}
}
