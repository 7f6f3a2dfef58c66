package main

import (
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/vantorre/pokertable/internal/config"
	"github.com/vantorre/pokertable/internal/engine/holdem"
	"github.com/vantorre/pokertable/internal/httpapi"
	"github.com/vantorre/pokertable/internal/obslog"
	"github.com/vantorre/pokertable/internal/store"
	"github.com/vantorre/pokertable/internal/tablelock"
	"github.com/vantorre/pokertable/internal/tablerun"
	"github.com/vantorre/pokertable/internal/tabletmpl"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	catalog, err := tabletmpl.New(cfg.TableTemplateDir)
	if err != nil {
		log.Fatalf("template catalog error: %v", err)
	}

	locks := tablelock.New(rdb, cfg.LockTTL, 50*time.Millisecond)
	factory := &holdem.Factory{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
	mgr := tablerun.NewManager(locks, factory, catalog, cfg.LockAcquireTimeout)
	runner := store.NewDBRunner(db)

	srv := httpapi.New(mgr, runner, catalog)

	errCh := make(chan error, 1)
	go func() {
		obslog.L().Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe(cfg.HTTPAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		obslog.L().Info("shutdown_signal", zap.String("signal", sig.String()))
		if err := srv.Shutdown(); err != nil {
			obslog.L().Warn("shutdown_error", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			obslog.L().Fatal("http_server_failed", zap.Error(err))
		}
	}
	obslog.L().Info("stopped")
}
