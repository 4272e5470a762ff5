package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	paramsconfig "github.com/PuppyCerberus/token-staking-contract/config"
	"github.com/PuppyCerberus/token-staking-contract/core/events"
	"github.com/PuppyCerberus/token-staking-contract/core/host"
	"github.com/PuppyCerberus/token-staking-contract/core/state"
	"github.com/PuppyCerberus/token-staking-contract/native/bank"
	"github.com/PuppyCerberus/token-staking-contract/native/staking"
	"github.com/PuppyCerberus/token-staking-contract/native/whitelist"
	"github.com/PuppyCerberus/token-staking-contract/observability"
	"github.com/PuppyCerberus/token-staking-contract/observability/logging"
	telemetry "github.com/PuppyCerberus/token-staking-contract/observability/otel"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/auth"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/config"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/export"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/journal"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/server"
	"github.com/PuppyCerberus/token-staking-contract/storage"
)

var version = "dev"

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/stakingd/config.yaml", "path to stakingd configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("stakingd: load config: %v", err)
	}

	logger := logging.Setup("stakingd", cfg.Environment, logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		MaxBackups: cfg.Log.MaxBackups,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stakingd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	deployment, err := paramsconfig.LoadParams(cfg.ParamsFile)
	if err != nil {
		return err
	}
	params, err := deployment.Staking()
	if err != nil {
		return err
	}
	balances, err := deployment.Balances()
	if err != nil {
		return err
	}

	telemetryCfg := telemetry.Config{
		ServiceName: "stakingd",
		Environment: cfg.Environment,
		Version:     version,
		Contract:    params.Contract.String(),
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}
	if telemetryCfg.Enabled() {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTelemetry(flushCtx)
		}()
	}

	db, err := openState(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	exec := host.NewExecutor(state.NewManager(db), host.WithLogger(logger))
	ledger := bank.NewLedger(exec.State(), logger)
	minted, err := applyGenesis(ctx, exec, ledger, balances, logger)
	if err != nil {
		return err
	}
	if minted {
		logger.Info("genesis applied", slog.Int("allocations", len(balances)))
	}

	bus := events.NewBus()
	emitter := events.Multi{bus, observability.Events()}
	gate := whitelist.NewGate(exec, params.Contract, emitter)
	engine, err := staking.NewEngine(params, exec, gate, ledger,
		staking.WithEmitter(emitter),
		staking.WithLogger(logger))
	if err != nil {
		return err
	}

	activity, err := journal.Open(cfg.Journal.DSN, cfg.Journal.IsPostgres(), logger)
	if err != nil {
		return err
	}
	defer activity.Close()
	// The journal outlives the signal context so events committed before
	// shutdown are still written once the server has stopped.
	journalCtx, stopJournal := context.WithCancel(context.Background())
	defer stopJournal()
	updates, unsubscribe := bus.SubscribeDurable(journalCtx)
	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		activity.Run(journalCtx, nil, updates)
	}()
	defer func() {
		unsubscribe()
		select {
		case <-journalDone:
		case <-time.After(cfg.ShutdownTimeout.Duration):
			logger.Warn("journal drain timed out")
			stopJournal()
			<-journalDone
		}
	}()

	secret, err := cfg.Auth.ResolveSecret()
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(auth.Config{
		Secret:     secret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AdminScope: cfg.Auth.AdminScope,
	})
	if err != nil {
		return err
	}

	exportDir := cfg.ExportDir
	srv, err := server.New(server.Config{
		ListenAddress:     cfg.ListenAddress,
		GRPCListenAddress: cfg.GRPCListenAddress,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		ShutdownTimeout:   cfg.ShutdownTimeout.Duration,
	}, server.Deps{
		Stakes:    engine,
		Allowlist: gate,
		Balances:  bank.NewReader(exec, ledger, params.Denomination),
		History:   activity,
		Events:    bus,
		Export: func(positions []staking.Position, at time.Time) (string, error) {
			return export.Snapshot(exportDir, positions, at)
		},
		Verifier: verifier,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.Info("stakingd starting",
		slog.String("contract", params.Contract.String()),
		slog.String("token", params.TokenContract.String()),
		slog.String("symbol", params.Denomination.String()),
		slog.Uint64("reward_rate_bps", params.RewardRateBps),
		logging.MaskField("hmac_secret", secret))
	err = srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openState(dataDir string) (storage.Database, error) {
	dataDir = strings.TrimSpace(dataDir)
	if dataDir == config.MemoryDataDir {
		return storage.NewMemDB(), nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := storage.NewLevelDB(filepath.Join(dataDir, "state"))
	if err != nil {
		return nil, err
	}
	return db, nil
}
