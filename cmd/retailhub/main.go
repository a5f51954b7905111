package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/retailhub/config"
	"github.com/talkincode/retailhub/internal/adminapi"
	"github.com/talkincode/retailhub/internal/app"
	"github.com/talkincode/retailhub/internal/notify"
	"github.com/talkincode/retailhub/internal/webserver"
)

var (
	version  = "develop"
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	dev      = flag.Bool("dev", false, "development mode")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	migrate  = flag.Bool("migrate", false, "migrate the database schema, then exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version)
		return
	}
	if *h {
		flag.Usage()
		return
	}

	cfg := config.LoadConfig(*conffile)
	if *dev {
		cfg.System.Debug = true
		cfg.Logger.Mode = "development"
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized", zap.String("namespace", "main"))
		return
	}
	if *migrate {
		if err := application.MigrateDB(true); err != nil {
			zap.L().Error("database migration failed", zap.Error(err), zap.String("namespace", "main"))
			os.Exit(1)
		}
		return
	}

	notifier, err := notify.NewNotifier(cfg.Mail)
	if err != nil {
		zap.L().Fatal("init notifier failed", zap.Error(err))
	}
	defer notifier.Release()
	if err := notifier.Subscribe(application.EventBus()); err != nil {
		zap.L().Fatal("subscribe notifier failed", zap.Error(err))
	}

	webserver.Init(application)
	adminapi.Init()

	errCh := make(chan error, 1)
	go func() {
		errCh <- webserver.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		zap.L().Info("shutting down", zap.String("signal", sig.String()), zap.String("namespace", "main"))
	case err := <-errCh:
		if err != nil {
			zap.L().Error("web server stopped", zap.Error(err), zap.String("namespace", "main"))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := webserver.Shutdown(ctx); err != nil {
		zap.L().Error("web server shutdown failed", zap.Error(err), zap.String("namespace", "main"))
	}
}
