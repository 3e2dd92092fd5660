package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/mramrohaleem/telegram-bot/internal/api"
	"github.com/mramrohaleem/telegram-bot/internal/app"
	"github.com/mramrohaleem/telegram-bot/internal/infra/config"
	"github.com/mramrohaleem/telegram-bot/internal/infra/logger"
	"github.com/mramrohaleem/telegram-bot/internal/notify"
	"github.com/mramrohaleem/telegram-bot/internal/queue"
	"github.com/mramrohaleem/telegram-bot/internal/retrieval"
	"github.com/mramrohaleem/telegram-bot/internal/store"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mediabot",
	Short: "Telegram media download bot",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download queue and admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return err
	}

	settings, err := store.NewSettingsStore(cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer settings.Close()

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.Token, log)
	if err != nil {
		return err
	}

	appCtx := app.NewContext(cfg, log)
	appCtx.Retriever = retrieval.NewClient(log)
	appCtx.Notifier = notifier
	appCtx.Prefs = settings

	q := queue.NewManager(appCtx)
	q.Start()

	e := echo.New()
	api.RegisterRoutes(e, appCtx, q)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: e}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server stopped: %v", err)
		}
	}()

	// Graceful shutdown on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down...")
	q.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("api shutdown: %v", err)
	}

	return nil
}
