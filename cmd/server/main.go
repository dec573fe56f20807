package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mud-server/internal/agent"
	"mud-server/internal/engine"
	"mud-server/internal/server"
	"mud-server/internal/version"
	"mud-server/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Парсинг конфигурации
	var seed int64
	// Флаг -seed перекрывает MUD_SEED. 0 - не перекрывать.
	flag.Int64Var(&seed, "seed", 0, "Combat RNG seed (0 keeps MUD_SEED or random)")
	bots := flag.Int("bots", 0, "Number of in-process bot players")
	flag.Parse()

	logger.Log.Info("Starting MUD server...")
	logger.Log.Info(version.String())

	cfg, err := engine.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid configuration")
	}
	if seed != 0 {
		cfg.Seed = seed
		logger.Log.Infof("Using explicit seed: %d", seed)
	} else {
		logger.Log.Infof("Using seed: %d", cfg.Seed)
	}

	// 2. Инициализация ядра
	gameService, err := engine.NewService(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to start engine")
	}

	// Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gameService.Run(ctx); err != nil {
			logger.Log.WithError(err).Error("Game loop failed")
		}
	}()

	// Боты-игроки внутри процесса
	for i := 1; i <= *bots; i++ {
		bot := agent.NewBot(fmt.Sprintf("Бот-%d", i), gameService, 2*time.Second, cfg.Seed+int64(i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bot.Run(ctx); err != nil {
				logger.Log.WithError(err).Warn("Bot stopped")
			}
		}()
	}

	// 3. Запуск сервера
	srv := server.New(gameService, cfg.Port)
	if err := srv.Run(ctx); err != nil {
		logger.Log.WithError(err).Error("Server error")
		stop()
	}

	logger.Log.Info("Shutting down...")
	wg.Wait()
	logger.Log.Info("Done.")
}
