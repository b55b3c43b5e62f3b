package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/internal/presentation/tui"
	httpadapter "github.com/aretw0/quadrat/pkg/adapters/http"
	"github.com/aretw0/quadrat/pkg/adapters/process"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/loader"
	"github.com/aretw0/quadrat/pkg/metrics"
	"github.com/aretw0/quadrat/pkg/ports"
	"github.com/aretw0/quadrat/pkg/registry"
	"github.com/aretw0/quadrat/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunSession executes a single participant session.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts)

	if !opts.Plain {
		tui.PrintBanner(quadrat.Version)
	}

	desc, err := loader.LoadFile(opts.TimelinePath)
	if err != nil {
		return fmt.Errorf("failed to load timeline: %w", err)
	}

	sm := runner.NewSignalManager()
	defer sm.Stop()

	exp, runErr := executeRun(context.Background(), opts, logger, sm, desc)
	logCompletion(exp, runErr, opts.Plain)
	return handleExecutionError(runErr)
}

// executeRun wires presenters, persistence, and the optional control server
// around one experiment run.
func executeRun(ctx context.Context, opts RunOptions, logger *slog.Logger, sm *runner.SignalManager, desc *domain.Description) (*quadrat.Experiment, error) {
	store, closeStore, err := setupStore(opts)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	expOpts := []quadrat.Option{}
	if opts.SeedSet {
		expOpts = append(expOpts, quadrat.WithSeed(opts.Seed))
	}
	if opts.Debug {
		expOpts = append(expOpts, quadrat.WithLifecycleHooks(createDebugHooks(logger)))
	}

	// The control server is created once the experiment exists; until then
	// the data callback drops nothing because no trial has run yet.
	var exp *quadrat.Experiment
	var controlSrv *httpadapter.Server
	var promReg *prometheus.Registry
	if opts.HTTPAddr != "" {
		promReg = prometheus.NewRegistry()
		collector := metrics.NewCollector(promReg)
		expOpts = append(expOpts, quadrat.WithLifecycleHooks(collector.Hooks()))
	}

	sessOpts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithStore(store),
		runner.WithSignals(sm),
		runner.WithExperimentOptions(expOpts...),
		runner.WithExperimentObserver(func(e *quadrat.Experiment) {
			exp = e
			if opts.HTTPAddr == "" {
				return
			}
			handler, srv := httpadapter.NewHandler(e, logger)
			controlSrv = srv
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
			mux.Handle("/", handler)
			go func() {
				logger.Info("control server listening", "addr", opts.HTTPAddr)
				if err := http.ListenAndServe(opts.HTTPAddr, mux); err != nil {
					logger.Error("control server failed", "err", err)
				}
			}()
		}),
	}
	if opts.HTTPAddr != "" {
		sessOpts = append(sessOpts, runner.WithOnDataUpdate(func(ctx context.Context, rec domain.Result) {
			if controlSrv != nil {
				controlSrv.OnDataUpdate(ctx, rec)
			}
		}))
	}
	if opts.RunID != "" {
		sessOpts = append(sessOpts, runner.WithRunID(opts.RunID))
	}

	presenters, err := buildPresenters(opts)
	if err != nil {
		return nil, err
	}

	sess, err := runner.NewSession(presenters, sessOpts...)
	if err != nil {
		return nil, err
	}

	if !opts.Plain {
		printSystemMessage("Run '%s' active.", sess.ID)
	}

	return exp, sess.Run(ctx, desc)
}

// buildPresenters registers the built-in trial presenters (free text entry,
// single keypress) plus any external presenters from the config file.
func buildPresenters(opts RunOptions) (ports.TrialRunner, error) {
	var textOpts []runner.TextHandlerOption
	if !opts.Plain {
		textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
	}

	reg := registry.NewRegistry()
	reg.Register("text", runner.NewTextHandler(os.Stdin, os.Stdout, textOpts...))
	reg.Register("key", runner.NewKeyHandler(os.Stdin, os.Stdout))

	if opts.PresentersPath != "" {
		cfg, err := process.LoadPresenters(opts.PresentersPath)
		if err != nil {
			return nil, err
		}
		ext := process.NewRunner(process.WithRegistry(cfg))
		for trialType := range cfg {
			reg.Register(trialType, ext)
		}
	}
	return reg, nil
}
