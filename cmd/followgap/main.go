package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"modbot/internal/app/adapters/platform/twitch/api"
	"modbot/internal/app/domain/velocity"
	"modbot/internal/app/infrastructure/config"
	"modbot/internal/pkg/app"
	"modbot/pkg/logger"
	"os"
	"time"
)

// Prints the most recent outgoing follows of a user and the gap statistic
// the velocity analyzer would compute for them.
func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	username := flag.String("user", "", "login to inspect")
	n := flag.Int("n", 0, "number of follows to fetch (default from config)")
	flag.Parse()

	if *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	manager, err := config.New(*configPath)
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}
	cfg := manager.Get()
	if *n <= 0 {
		*n = cfg.Velocity.OutgoingFollows
	}

	transport, _, err := app.NewTransport(cfg)
	if err != nil {
		log.Fatal("Error creating transport: ", err)
	}

	lg := logger.New()
	lg.SetLogLevel("warn")
	helix := api.NewTwitch(lg, cfg, api.WithTransport(transport))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	id, err := helix.GetUserID(ctx, *username)
	if err != nil {
		log.Fatal("Error resolving user: ", err)
	}

	follows, err := helix.GetOutgoingFollows(ctx, id, *n)
	if err != nil {
		log.Fatal("Error fetching follows: ", err)
	}

	for _, f := range follows {
		fmt.Printf("%s  %s\n", f.FollowedAt.Format(time.RFC3339), f.FollowedLogin)
	}
	for i, gap := range velocity.FollowGaps(follows) {
		fmt.Printf("gap %d: %s\n", i, gap)
	}

	stat, ok := velocity.GapStatistic(follows)
	if !ok {
		fmt.Println("gap statistic: undefined (fewer than two follows)")
		return
	}
	fmt.Printf("gap statistic: %s (threshold %s, flagged %t)\n", stat, cfg.Velocity.Threshold, stat < cfg.Velocity.Threshold)
}
