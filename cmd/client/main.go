// Command client plays a hot-seat Hold'em game in the terminal: the
// listed players share one keyboard and take turns at the table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"

	"github.com/pointsbot/holdem/internal/logging"
	"github.com/pointsbot/holdem/pkg/config"
	"github.com/pointsbot/holdem/pkg/gateway"
	"github.com/pointsbot/holdem/pkg/ledger"
	"github.com/pointsbot/holdem/pkg/server"
	"github.com/pointsbot/holdem/pkg/ui"
)

const channel = "#hotseat"

// grantStartingPoints funds players who have nothing to play with.
func grantStartingPoints(ctx context.Context, l ledger.Ledger, log slog.Logger, players []string, points int64) error {
	if points <= 0 {
		return nil
	}
	for _, id := range players {
		bal, err := l.GetBalance(ctx, id)
		if err != nil {
			return fmt.Errorf("could not get balance of %s: %w", id, err)
		}
		if bal > 0 {
			log.Infof("%s has %d points", id, bal)
			continue
		}
		bal, err = l.AdjustBalance(ctx, id, points, "Initial deposit")
		if err != nil {
			return fmt.Errorf("could not initialize balance of %s: %w", id, err)
		}
		log.Infof("Initialized balance of %s: %d", id, bal)
	}
	return nil
}

func parsePlayers(s string) []string {
	var players []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		players = append(players, p)
	}
	return players
}

func realMain() error {
	flags := config.RegisterFlags(flag.CommandLine)
	playerList := flag.String("players", "alice,bob", "Comma separated players; the first hosts")
	flag.Parse()

	cfg, err := config.LoadConfig(flags, "holdemclient")
	if err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}
	players := parsePlayers(*playerList)
	if len(players) < 2 {
		return fmt.Errorf("need at least 2 players, got %q", *playerList)
	}

	// The terminal belongs to the UI, so logs only go to the file.
	logBackend, err := logging.NewLogBackend(cfg.LogBackendConfig())
	if err != nil {
		return fmt.Errorf("logging error: %v", err)
	}
	defer logBackend.Close()
	log := logBackend.Logger("CLNT")

	l, err := ledger.Open(cfg.Ledger.Kind, cfg.Ledger.Path, logBackend.Logger("LDGR"))
	if err != nil {
		return fmt.Errorf("failed to open ledger: %v", err)
	}
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := grantStartingPoints(ctx, l, log, players, cfg.Ledger.StartingPoints); err != nil {
		return err
	}

	srv := server.NewServer(cfg.ServerConfig(), l, logBackend)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer closeCancel()
		if err := srv.Close(closeCtx); err != nil {
			log.Errorf("Shutdown: %v", err)
		}
	}()
	gw := gateway.New(srv, cfg.GatewayConfig(), logBackend.Logger("GTWY"))

	host := players[0]
	if _, err := srv.OpenLobby(ctx, channel, host, cfg.Table.BigBlind); err != nil {
		return fmt.Errorf("failed to open lobby: %v", err)
	}
	for _, id := range players[1:] {
		if _, err := srv.JoinLobby(ctx, channel, id); err != nil {
			return fmt.Errorf("failed to seat %s: %v", id, err)
		}
	}

	m := ui.NewModel(ctx, srv, gw, srv.Events(), channel, host, players)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("UI error: %v", err)
	}
	return nil
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
