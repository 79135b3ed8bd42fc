package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dayoff-kr/moimlink/internal/cache"
	cachememory "github.com/dayoff-kr/moimlink/internal/cache/memory"
	cacheredis "github.com/dayoff-kr/moimlink/internal/cache/redis"
	"github.com/dayoff-kr/moimlink/internal/config"
	healthctrl "github.com/dayoff-kr/moimlink/internal/http/controllers/health"
	linkctrl "github.com/dayoff-kr/moimlink/internal/http/controllers/link"
	"github.com/dayoff-kr/moimlink/internal/http/router"
	healthsvc "github.com/dayoff-kr/moimlink/internal/http/services/health"
	linksvc "github.com/dayoff-kr/moimlink/internal/http/services/link"
	"github.com/dayoff-kr/moimlink/internal/identity/authapi"
	"github.com/dayoff-kr/moimlink/internal/metrics"
	"github.com/dayoff-kr/moimlink/internal/observability/logger"
	"github.com/dayoff-kr/moimlink/internal/rate"
	"github.com/dayoff-kr/moimlink/internal/security/secretbox"
	"github.com/dayoff-kr/moimlink/internal/session"
	"github.com/dayoff-kr/moimlink/internal/store/core"
	memstore "github.com/dayoff-kr/moimlink/internal/store/memory"
	pgstore "github.com/dayoff-kr/moimlink/internal/store/pg"
	migrations "github.com/dayoff-kr/moimlink/migrations/postgres"

	httpserver "github.com/dayoff-kr/moimlink/internal/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "moimlink",
		Version:     os.Getenv("SERVICE_VERSION"),
	})
	defer logger.Sync()
	lg := logger.L()

	ctx := context.Background()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		lg.Fatal("store open failed", logger.Err(err))
	}
	defer repo.Close()

	cacheClient, limiter, err := openCache(cfg)
	if err != nil {
		lg.Fatal("cache open failed", logger.Err(err))
	}
	defer cacheClient.Close()

	sessions := session.NewStore(cacheClient, cfg.SessionTTL())
	cookieCfg := session.CookieConfig{
		Name:     cfg.Session.CookieName,
		Domain:   cfg.Session.Domain,
		SameSite: cfg.Session.SameSite,
		Secure:   cfg.Session.Secure,
		TTL:      cfg.SessionTTL(),
	}

	serviceKey := cfg.AuthAPI.ServiceKey
	if secretbox.Looks(serviceKey) {
		dec, err := secretbox.Decrypt(serviceKey)
		if err != nil {
			lg.Fatal("service key decryption failed", logger.Err(err))
		}
		serviceKey = dec
	}
	gateway := authapi.New(cfg.AuthAPI.BaseURL, serviceKey, cfg.AuthAPITimeout())

	signer := linksvc.NewHMACStateSigner([]byte(cfg.Link.StateSecret), "moimlink", cfg.StateTTL())

	services := linksvc.Services{
		Callback: linksvc.NewCallbackService(linksvc.CallbackDeps{
			Gateway:     gateway,
			Sessions:    sessions,
			Repo:        repo,
			StateSigner: signer,
		}),
		Start: linksvc.NewStartService(linksvc.StartDeps{
			Gateway:     gateway,
			StateSigner: signer,
			Providers:   cfg.Link.Providers,
			DefaultNext: cfg.Link.DefaultNext,
		}),
		Accounts: linksvc.NewAccountsService(linksvc.AccountsDeps{Repo: repo}),
	}

	if err := metrics.Register(nil); err != nil {
		lg.Fatal("metrics registration failed", logger.Err(err))
	}

	handler := router.New(router.Deps{
		Link: linkctrl.NewControllers(linkctrl.ControllersDeps{
			Services:    services,
			Cookie:      cookieCfg,
			BaseURL:     cfg.Server.BaseURL,
			DefaultNext: cfg.Link.DefaultNext,
		}),
		Health: healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{
			DBCheck:    repo.Ping,
			CacheCheck: cacheClient.Ping,
		})),
		Sessions:    sessions,
		Cookie:      cookieCfg,
		Limiter:     limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := httpserver.NewServer(cfg.Server.Addr, handler)

	var metricsSrv *httpserver.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = httpserver.NewServer(cfg.Server.MetricsAddr, mux)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(srv.Start)
	if metricsSrv != nil {
		g.Go(metricsSrv.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shCtx)
		}
		return srv.Shutdown(shCtx)
	})

	lg.Info("service up",
		logger.String("addr", cfg.Server.Addr),
		logger.String("env", cfg.App.Env),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
	)

	if err := g.Wait(); err != nil {
		lg.Fatal("server failed", logger.Err(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (core.Repository, error) {
	if strings.EqualFold(cfg.Storage.Driver, "memory") {
		return memstore.New(), nil
	}

	st, err := pgstore.New(ctx, cfg.Storage.DSN, pgstore.Tuning{
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(os.Getenv("MIGRATE"), "true") {
		if err := st.RunMigrations(ctx, migrations.FS, migrations.Dir); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

func openCache(cfg *config.Config) (cache.Client, rate.Limiter, error) {
	if strings.EqualFold(cfg.Cache.Kind, "redis") {
		rc := cacheredis.New(cache.Config{
			Kind:     "redis",
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})

		var limiter rate.Limiter
		if cfg.Rate.Enabled {
			window, err := time.ParseDuration(cfg.Rate.Window)
			if err != nil || window <= 0 {
				window = time.Minute
			}
			limiter = rate.NewRedisLimiter(rc.Client(), "rl:", cfg.Rate.MaxRequests, window)
		}
		return rc, limiter, nil
	}

	ttl := 24 * time.Hour
	if d, err := time.ParseDuration(cfg.Cache.Memory.DefaultTTL); err == nil && d > 0 {
		ttl = d
	}
	// Rate limiting needs redis; memory cache deployments run unlimited.
	return cachememory.New(cfg.Cache.Redis.Prefix, ttl), nil, nil
}
