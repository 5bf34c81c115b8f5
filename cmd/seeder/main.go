//cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/logging"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

type seed struct {
	Address  string
	Lamports int64
}

// parseSeed reads an address=lamports argument.
func parseSeed(arg string) (seed, error) {
	address, amount, ok := strings.Cut(arg, "=")
	address = strings.TrimSpace(address)
	if !ok || address == "" {
		return seed{}, fmt.Errorf("seed %q: want address=lamports", arg)
	}
	lamports, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
	if err != nil || lamports <= 0 {
		return seed{}, fmt.Errorf("seed %q: lamports must be a positive integer", arg)
	}
	return seed{Address: address, Lamports: lamports}, nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: seeder [address=lamports ...]")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.NewLogger(os.Stdout, cfg.LogFormat, cfg.SlogLevel())

	seeds := make([]seed, 0, flag.NArg())
	for _, arg := range flag.Args() {
		s, err := parseSeed(arg)
		if err != nil {
			logger.Error("invalid seed", logging.Err(err))
			os.Exit(2)
		}
		seeds = append(seeds, s)
	}

	conn, dialect, err := db.Open(cfg)
	if err != nil {
		logger.Error("failed to open database", logging.Err(err))
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.Migrate(conn, dialect); err != nil {
		logger.Error("failed to migrate database", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("Migrations applied", "db", cfg.DBDriver)

	svc := service.NewCampaignService(repository.NewStore(conn, dialect), queue.NewInMemoryQueue(logger), cfg.Rent(), logger)
	ctx := context.Background()
	for _, s := range seeds {
		account, err := svc.Airdrop(ctx, s.Address, s.Lamports)
		if err != nil {
			logger.Error("failed to fund account", logging.Caller(s.Address), logging.Err(err))
			os.Exit(1)
		}
		logger.Info("Seeded", logging.Caller(account.Address), "lamports", account.Lamports)
	}

	logger.Info("Database seeding completed successfully!", "accounts", len(seeds))
}
