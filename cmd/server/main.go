package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/auth"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/config"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/dispatch"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/grace"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/httpapi"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/hub"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/logging"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/relay"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/room"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/scramble"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/store"
	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// fanout is what the room service and dispatcher publish through: the local
// hub alone, or the Redis relay in front of it.
type fanout interface {
	room.Broadcaster
	dispatch.Fanout
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	h := hub.NewHub(ctx)
	defer h.Shutdown()
	var bc fanout = h
	var counter ws.Counter
	graceOpts := []grace.Option{grace.WithWindow(cfg.GracePeriod)}

	g, gctx := errgroup.WithContext(ctx)

	var rl *relay.Relay
	if cfg.RedisURL != "" {
		rl, err = relay.Dial(ctx, cfg.RedisURL, cfg.RedisPrefix, h, logger)
		if err != nil {
			return err
		}
		defer rl.Close()
		bc = rl
		counter = rl
		graceOpts = append(graceOpts, grace.WithPeers(rl))
		logger.Info("redis relay enabled", zap.String("prefix", cfg.RedisPrefix))
	}

	reg := grace.NewRegistry()
	rooms := room.NewService(st, scramble.NewGenerator(uint64(time.Now().UnixNano())), bc, logger, room.Options{
		BcryptCost: cfg.BcryptCost,
		Presence:   reg,
	})
	coord := grace.New(rooms, bc, reg, logger, graceOpts...)
	disp := dispatch.New(rooms, h, bc, coord, logger)

	if rl != nil {
		rl.OnBack(func(ctx context.Context, userID string) { coord.Resume(ctx, userID) })
		g.Go(func() error { return rl.Run(gctx) })
	}

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Rooms: rooms,
		WS: ws.Handler(ws.Deps{
			Auth:       auth.NewJWT(cfg.JWTSecret),
			Dispatcher: disp,
			Hub:        h,
			Presence:   coord,
			Counter:    counter,
			Origins:    cfg.AllowedOrigins,
			Log:        logger,
		}),
		Origins: cfg.AllowedOrigins,
		Log:     logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// openStore uses Postgres when DATABASE_URL is set and memory otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, rooms are kept in memory")
		return store.NewMemory(), nil
	}
	return store.OpenPostgres(ctx, cfg.DatabaseURL, logger)
}
