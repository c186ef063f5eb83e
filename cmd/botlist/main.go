package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"modbot/internal/app/domain/botlist"
	botlistsync "modbot/internal/app/infrastructure/botlist"
	"modbot/internal/app/infrastructure/config"
	"modbot/internal/pkg/app"
	"modbot/pkg/logger"
	"net/http"
	"time"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	manager, err := config.New(*configPath)
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	cfg := manager.Get()

	transport, _, err := app.NewTransport(cfg)
	if err != nil {
		log.Fatal("Error creating transport: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	refresher := botlistsync.NewRefresher(logger.New(), &http.Client{Transport: transport, Timeout: time.Minute}, cfg.BotList, botlist.New(nil))
	n, err := refresher.Refresh(ctx)
	if err != nil {
		log.Fatal("Error refreshing bot list: ", err)
	}

	fmt.Printf("wrote %d bots to %s\n", n, cfg.BotList.Path)
}
