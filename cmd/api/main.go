package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"stayhub/internal/adapters/auth"
	server "stayhub/internal/adapters/http_server"
	"stayhub/internal/adapters/notify"
	"stayhub/internal/adapters/observability"
	redisad "stayhub/internal/adapters/redis"
	"stayhub/internal/app"
	"stayhub/internal/shared"
	mysqlrepo "stayhub/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	hotelRepo := mysqlrepo.NewHotelRepo(db)
	orderRepo := mysqlrepo.NewOrderRepo(db)
	profileRepo := mysqlrepo.NewProfileRepo(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	gateway, err := notify.NewRefundGateway(cfg.SettlementBase, cfg.SettlementKey, cfg.RefundRPS, cfg.RefundWorkers)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize refund gateway")
	}

	hotels := app.NewHotelService(hotelRepo, cache)
	bookings := app.NewBookingService(hotelRepo, orderRepo, profileRepo, gateway)
	queries := app.NewQueryService(hotelRepo, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Auth:     auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL),
		Hotels:   hotels,
		Bookings: bookings,
		Q:        queries,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	// flush queued refund deliveries before exit
	gateway.Wait()
}
