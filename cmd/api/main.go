package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"counselbot.org/internal/auth"
	"counselbot.org/internal/config"
	"counselbot.org/internal/httpapi"
	"counselbot.org/internal/obs"
	"counselbot.org/internal/ratelimit"
	"counselbot.org/internal/store/pg"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	log := obs.Logger()

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	obs.SetLevel(cfg.LogLevel)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	if err := cfg.Validate(); err != nil {
		// Keep serving: /api reports the gap and login answers 500 naming it.
		log.WithError(err).Warn("starting with incomplete configuration")
	}

	var (
		store *pg.Store
		ready httpapi.ReadyProbe
	)
	if dsn := cfg.EffectiveDatabaseURL(); dsn != "" {
		store, err = pg.Open(dsn)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		ready = httpapi.ReadyProbe{DB: store.DB()}
	}

	var credentials *auth.CredentialStore
	if store != nil {
		credentials = auth.NewCredentialStore(store)
	} else {
		credentials = auth.NewCredentialStore(nil)
	}
	sessions := auth.NewSessionIssuer(cfg.JWTSecret,
		auth.WithTTL(cfg.TokenTTL),
		auth.WithLeeway(cfg.ClockSkew),
	)

	limiterCfg := ratelimit.Config{Burst: cfg.LoginBurst, PerMinute: cfg.LoginPerMin}
	var limiter ratelimit.Limiter = ratelimit.NewMemory(limiterCfg)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		ropts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("parse REDIS_URL")
		}
		redisClient = redis.NewClient(ropts)
		limiter = ratelimit.NewRedis(redisClient, limiterCfg, "")
		log.WithField("addr", ropts.Addr).Info("login throttling shared through redis")
	}

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.WithError(err).Fatal("parse trusted proxies")
	}

	api := httpapi.New(httpapi.Options{
		Version:        version,
		Credentials:    credentials,
		Sessions:       sessions,
		Ready:          ready,
		LoginLimiter:   limiter,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TrustedProxies: proxies,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.WithError(err).Fatal("listen grpc")
		}
		grpcServer = grpc.NewServer()
		httpapi.NewGRPCHealth(api.Probe()).Register(grpcServer)
		go func() {
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.WithError(err).Fatal("serve grpc")
			}
		}()
		log.WithField("addr", cfg.GRPCAddr).Info("grpc health listening")
	}

	log.WithFields(logrus.Fields{
		"version":  version,
		"addr":     srv.Addr,
		"database": store != nil,
		"jwt":      sessions.Configured(),
		"ttl":      sessions.TTL().String(),
	}).Info("starting counselbot-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if store != nil {
		_ = store.Close()
	}
	log.Info("stopped")
}
