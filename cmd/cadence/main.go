package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cadence/internal/admin"
	"cadence/internal/collector"
	"cadence/internal/config"
	"cadence/internal/coordinator"
	"cadence/internal/core"
	"cadence/internal/correlation"
	"cadence/internal/executor"
	"cadence/internal/pacing"
	"cadence/internal/progress"
	"cadence/internal/scenario"
	"cadence/internal/vars"
)

const (
	ExitSuccess         = 0
	ExitThresholdFailed = 1
	ExitError           = 2
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (required)")
	adminAddr := flag.String("admin", ":8089", "admin API listen address (empty = disabled)")
	scenarios := flag.String("scenarios", "", "comma-separated initial scenario selection (default: all)")
	duration := flag.Duration("duration", 0, "override total run duration (0 = stage table)")
	rps := flag.Int("rps", 0, "run-wide request rate cap (0 = unlimited)")
	output := flag.String("output", "text", "output format: text, json")
	quiet := flag.Bool("quiet", false, "suppress progress output during test")
	verbose := flag.Bool("verbose", false, "enable debug output for failed requests")
	smoke := flag.Bool("smoke", false, "smoke mode: 2 users, 1 iteration each, curl output")
	maxIterations := flag.Int("max-iterations", 0, "max iterations per user (0 = unlimited)")
	warmup := flag.Int("warmup", 0, "warmup iterations before collecting metrics (per user)")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "error: --config is required")
		flag.Usage()
		os.Exit(ExitError)
	}
	if *output != "text" && *output != "json" {
		fmt.Fprintf(os.Stderr, "error: --output must be 'text' or 'json', got %q\n", *output)
		os.Exit(ExitError)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	if len(cfg.Scenarios) == 0 {
		fmt.Fprintln(os.Stderr, "error: config declares no scenarios")
		os.Exit(ExitError)
	}

	varStore := vars.NewStore()
	if err := cfg.RegisterData(varStore, filepath.Dir(*configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	corrStore := correlation.NewStore()
	gate := pacing.NewGate()

	exec := executor.New(core.NewHTTPTransport(), varStore, corrStore, gate)
	if *verbose {
		exec.Debug = executor.NewDebugLogger(os.Stderr)
	}
	if *smoke {
		exec.Smoke = os.Stdout
	}

	loops := make(map[string]core.UserLoop, len(cfg.Scenarios))
	for _, script := range cfg.Scripts() {
		loops[script.Scenario] = &executor.ScriptLoop{Script: script, Executor: exec}
	}

	registry := scenario.NewRegistry(cfg.Stages)
	initial := allScenarioIDs(cfg)
	if *scenarios != "" {
		initial = splitList(*scenarios)
	}
	if err := registry.SetActive(initial); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	coll := collector.NewCollector()
	coord := coordinator.NewCoordinator(registry, coll)

	runnerConfig := core.RunnerConfig{
		MaxIterations: cfg.Execution.MaxIterations,
		WarmupIters:   cfg.Execution.WarmupIterations,
	}
	if *maxIterations > 0 {
		runnerConfig.MaxIterations = *maxIterations
	}
	if *warmup > 0 {
		runnerConfig.WarmupIters = *warmup
	}
	if *rps > 0 {
		coord.SetRateLimiter(pacing.NewRateLimiter(*rps))
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	interrupted := false
	go func() {
		<-sigCh
		interrupted = true
		if !*quiet {
			fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		}
		cancel()
	}()

	adminSrv := startAdmin(*adminAddr, registry, *smoke)

	if *smoke {
		runnerConfig.MaxIterations = 1
		coord.SetRunnerConfig(runnerConfig)
		coord.RunShape(ctx, scenario.NewSmokeShape(), loops)
		coord.Wait()
		shutdownAdmin(adminSrv)
		coll.Close()
		os.Exit(ExitSuccess)
	}

	coord.SetRunnerConfig(runnerConfig)

	prog := progress.NewProgress(coll, *quiet)
	prog.UserCount = coord.ActiveUsers
	prog.Start()

	runCtx := ctx
	if *duration > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(ctx, *duration)
		defer timeoutCancel()
	}

	coord.Run(runCtx, loops, prog)
	coord.Wait()
	prog.Stop()
	shutdownAdmin(adminSrv)
	coll.Close()

	metrics := coll.Compute()
	thresholdResults := cfg.Thresholds.Check(metrics)

	if *output == "json" {
		collector.FormatJSON(os.Stdout, metrics, thresholdResults)
	} else {
		collector.FormatText(os.Stdout, metrics, thresholdResults)
	}

	if interrupted {
		os.Exit(ExitSuccess)
	}
	if thresholdResults != nil && !thresholdResults.Passed {
		if *output == "text" {
			fmt.Fprintln(os.Stderr, "\nThreshold check failed!")
		}
		os.Exit(ExitThresholdFailed)
	}
	os.Exit(ExitSuccess)
}

func allScenarioIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Scenarios))
	for _, sc := range cfg.Scenarios {
		ids = append(ids, sc.ID)
	}
	return ids
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func startAdmin(addr string, registry *scenario.Registry, smoke bool) *http.Server {
	if addr == "" || smoke {
		return nil
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: admin.NewServer(registry).Handler(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "admin server error: %v\n", err)
		}
	}()
	return srv
}

func shutdownAdmin(srv *http.Server) {
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
