package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/PuppyCerberus/token-staking-contract/core/events"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/native/staking"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/auth"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/journal"
)

// Stakes is the staking engine surface served over HTTP.
type Stakes interface {
	Params() staking.Params
	Open(ctx context.Context, user types.Name, quantity types.Asset, term uint64) (*staking.StakeRecord, error)
	RequestUnstake(ctx context.Context, user types.Name, id uint64) (*staking.StakeRecord, error)
	Restake(ctx context.Context, user types.Name, id uint64) (*staking.StakeRecord, error)
	Claim(ctx context.Context, user types.Name, id uint64) (types.Asset, error)
	CompoundReward(ctx context.Context, user types.Name, id uint64) (types.Asset, error)
	Withdraw(ctx context.Context, user types.Name, id uint64) (types.Asset, error)
	List(ctx context.Context, user types.Name) ([]staking.Position, error)
	Positions(ctx context.Context) ([]staking.Position, error)
}

// Allowlist manages the accounts allowed to open stakes.
type Allowlist interface {
	Add(ctx context.Context, account types.Name) error
	Remove(ctx context.Context, account types.Name) error
	Members(ctx context.Context) ([]types.Name, error)
	Lookup(ctx context.Context, account types.Name) (bool, error)
}

// Balances reads token holdings.
type Balances interface {
	Balance(ctx context.Context, account types.Name) (types.Asset, error)
}

// History serves journaled lifecycle events.
type History interface {
	StakeHistory(ctx context.Context, account string, stakeID uint64, limit int) ([]journal.Activity, error)
	AccountHistory(ctx context.Context, account string, limit int) ([]journal.Activity, error)
}

// EventSource streams committed events.
type EventSource interface {
	Subscribe(ctx context.Context, cursor string) (<-chan events.Envelope, func(), []events.Envelope)
}

// Exporter writes a position snapshot and returns where it was written.
type Exporter func(positions []staking.Position, at time.Time) (string, error)

// Config defines listener and limiter parameters.
type Config struct {
	ListenAddress     string
	GRPCListenAddress string
	RequestsPerSecond float64
	Burst             int
	ShutdownTimeout   time.Duration
}

// Deps are the collaborators served by the API.
type Deps struct {
	Stakes    Stakes
	Allowlist Allowlist
	Balances  Balances
	History   History
	Events    EventSource
	Export    Exporter
	Verifier  *auth.Verifier
	Logger    *slog.Logger
	Now       func() time.Time
}

// Server hosts the staking HTTP API and the gRPC health endpoint.
type Server struct {
	cfg       Config
	stakes    Stakes
	allowlist Allowlist
	balances  Balances
	history   History
	events    EventSource
	export    Exporter
	verifier  *auth.Verifier
	limiter   *RateLimiter
	logger    *slog.Logger
	now       func() time.Time
	router    http.Handler
}

// New validates dependencies and builds the router.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Stakes == nil || deps.Allowlist == nil || deps.Balances == nil {
		return nil, errors.New("server: stakes, allowlist and balances are required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("server: token verifier required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:       cfg,
		stakes:    deps.Stakes,
		allowlist: deps.Allowlist,
		balances:  deps.Balances,
		history:   deps.History,
		events:    deps.Events,
		export:    deps.Export,
		verifier:  deps.Verifier,
		limiter:   NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:    deps.Logger,
		now:       deps.Now,
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Use(s.limiter.Middleware)
		api.Use(s.authenticate)

		api.Get("/stakes", s.handleListStakes)
		api.Post("/stakes", s.handleOpenStake)
		api.Post("/stakes/{id}/unstake", s.handleUnstake)
		api.Post("/stakes/{id}/restake", s.handleRestake)
		api.Post("/stakes/{id}/claim", s.handleClaim)
		api.Post("/stakes/{id}/compound", s.handleCompound)
		api.Post("/stakes/{id}/withdraw", s.handleWithdraw)
		api.Get("/stakes/{id}/history", s.handleStakeHistory)
		api.Get("/activity", s.handleActivity)
		api.Get("/balance", s.handleBalance)
		api.Get("/whitelist/me", s.handleWhitelistSelf)
		api.Get("/events", s.handleEvents)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(s.requireAdmin)
			admin.Get("/whitelist", s.handleWhitelistList)
			admin.Post("/whitelist", s.handleWhitelistAdd)
			admin.Delete("/whitelist/{account}", s.handleWhitelistRemove)
			admin.Get("/positions", s.handlePositions)
			admin.Post("/export", s.handleExport)
		})
	})

	return otelhttp.NewHandler(r, "stakingd.http")
}

// Run serves HTTP, and gRPC health when configured, until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddress, err)
	}
	var grpcLn net.Listener
	if s.cfg.GRPCListenAddress != "" {
		grpcLn, err = net.Listen("tcp", s.cfg.GRPCListenAddress)
		if err != nil {
			httpLn.Close()
			return fmt.Errorf("listen %s: %w", s.cfg.GRPCListenAddress, err)
		}
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve runs on pre-bound listeners. grpcLn may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	health := newHealthServer()

	serverErr := make(chan error, 2)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", httpLn.Addr().String()))
		if err := srv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http serve: %w", err)
			return
		}
		serverErr <- nil
	}()
	if grpcLn != nil {
		go func() {
			s.logger.Info("grpc health listening", slog.String("addr", grpcLn.Addr().String()))
			if err := health.serve(grpcLn); err != nil {
				serverErr <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
	}

	health.shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", slog.Any("error", err))
	}
	return runErr
}
