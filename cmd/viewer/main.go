package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/junzhij/esports-tournament-live/client"
	"github.com/junzhij/esports-tournament-live/models"
)

// A headless viewer: subscribes like an overlay page would and logs
// every state transition. Useful for smoke-testing a production setup
// without a browser.
func main() {
	serverURL := flag.String("server", "http://localhost:8080", "base URL of the live server")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent := client.NewAgent(*serverURL, logger)
	agent.OnChange(func(state models.PublicState) {
		published := 0
		for _, game := range state.Games {
			if game.Result != nil {
				published++
			}
		}
		logger.Info("state updated",
			slog.String("title", state.Match.Title),
			slog.String("status", string(state.Match.Status)),
			slog.Int("score_a", state.Match.ScoreA),
			slog.Int("score_b", state.Match.ScoreB),
			slog.Int("current_game", state.Match.CurrentGameNo),
			slog.Int("published_results", published),
		)
	})

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return agent.Run(ctx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("viewer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("viewer stopped")
}
