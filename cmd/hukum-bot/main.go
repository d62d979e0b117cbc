package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"sudooom.hukum/internal/client"
	"sudooom.hukum/internal/config"
	"sudooom.hukum/internal/jwt"
	hukumNats "sudooom.hukum/internal/nats"
	"sudooom.hukum/internal/protocol"
)

func main() {
	natsURL := flag.String("nats", nats.DefaultURL, "NATS server url")
	gameID := flag.String("game", "", "game id to join")
	seat := flag.Int("seat", 0, "seat to claim (0-3)")
	token := flag.String("token", "", "access token")
	secret := flag.String("secret", os.Getenv("HUKUM_JWT_SECRET_KEY"), "jwt secret used to sign a token when -token is empty")
	userID := flag.Int64("user", 0, "user id for the signed token")
	issuer := flag.String("issuer", "hukum", "jwt issuer expected by the service")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *gameID == "" {
		logger.Error("-game is required")
		os.Exit(2)
	}

	if *token == "" {
		if *secret == "" || *userID == 0 {
			logger.Error("either -token or -secret with -user is required")
			os.Exit(2)
		}
		signed, err := jwt.NewService(*secret, time.Hour, *issuer).GenerateAccessToken(*userID)
		if err != nil {
			logger.Error("Failed to sign token", "error", err)
			os.Exit(1)
		}
		*token = signed
	}

	natsClient, err := hukumNats.NewClient(config.NATSConfig{
		URL:           *natsURL,
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
	}, "hukum-bot")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := client.NewSession(client.NewNATSTransport(natsClient.Conn()), *gameID, *token, *timeout)
	if err := session.Join(ctx, *seat); err != nil {
		logger.Error("Failed to join game", "error", err, "gameId", *gameID, "seat", *seat)
		os.Exit(1)
	}
	logger.Info("Joined game", "gameId", *gameID, "seat", *seat)

	if err := run(ctx, session, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot stopped", "error", err)
		os.Exit(1)
	}
}

// run 按视图更新决定并执行动作，直到牌局结束或被中断
func run(ctx context.Context, session *client.Session, logger *slog.Logger) error {
	defer session.Leave(context.Background())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-session.Updates():
			if !ok {
				return nil
			}
			move, ok := client.Decide(v)
			if !ok {
				continue
			}
			if err := execute(ctx, session, move); err != nil {
				if errors.Is(err, client.ErrSessionClosed) {
					return nil
				}
				// 被拒绝的动作不会改变状态，主动重同步后再决定
				logger.Warn("Move rejected", "action", move.Action, "error", err)
				if err := session.Resync(ctx); err != nil {
					return err
				}
				continue
			}
			if move.Action == protocol.ActionLeave {
				st := v.State
				logger.Info("Game completed",
					"teamA", st.Scores[0],
					"teamB", st.Scores[1],
					"rounds", st.Round)
				return nil
			}
		}
	}
}

// execute 执行一个动作
func execute(ctx context.Context, session *client.Session, move client.Move) error {
	switch move.Action {
	case protocol.ActionSelectHukum:
		return session.SelectHukum(ctx, move.Suit)
	case protocol.ActionPlayCard:
		return session.PlayCard(ctx, move.Card)
	case protocol.ActionContinueRound:
		return session.ContinueRound(ctx)
	case protocol.ActionLeave:
		return session.Leave(ctx)
	}
	return nil
}
