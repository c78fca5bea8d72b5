// Command bot runs the Hold'em chat bot against a console chat: each input
// line is a message "<channel> <user>: <text>", and bot output is printed
// with its destination. Operator commands start with "/".
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/pointsbot/holdem/internal/logging"
	"github.com/pointsbot/holdem/pkg/bot"
	"github.com/pointsbot/holdem/pkg/config"
	"github.com/pointsbot/holdem/pkg/gateway"
	"github.com/pointsbot/holdem/pkg/ledger"
	"github.com/pointsbot/holdem/pkg/server"
)

const shutdownTimeout = 30 * time.Second

// console prints bot output to a writer.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) SendChannel(ctx context.Context, channel, msg string) error {
	return c.printf("[%s] %s\n", channel, msg)
}

func (c *console) SendPM(ctx context.Context, userID, msg string) error {
	return c.printf("[PM %s] %s\n", userID, msg)
}

func (c *console) printf(format string, args ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, format, args...)
	return err
}

// parseLine splits "<channel> <user>: <text>".
func parseLine(line string) (channel, user, text string, ok bool) {
	channel, rest, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok {
		return "", "", "", false
	}
	user, text, ok = strings.Cut(rest, ":")
	if !ok {
		return "", "", "", false
	}
	user, text = strings.TrimSpace(user), strings.TrimSpace(text)
	if user == "" || text == "" {
		return "", "", "", false
	}
	return channel, user, text, true
}

// handleOperator runs "/grant <user> <points>" and "/balance <user>".
func handleOperator(ctx context.Context, l ledger.Ledger, out *console, line string) {
	tokens := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(tokens) == 0 {
		return
	}
	switch tokens[0] {
	case "grant":
		if len(tokens) != 3 {
			out.printf("usage: /grant <user> <points>\n")
			return
		}
		points, err := strconv.ParseInt(tokens[2], 10, 64)
		if err != nil {
			out.printf("invalid points %q\n", tokens[2])
			return
		}
		bal, err := l.AdjustBalance(ctx, tokens[1], points, "operator grant")
		if err != nil {
			out.printf("grant failed: %v\n", err)
			return
		}
		out.printf("%s now has %d points\n", tokens[1], bal)

	case "balance":
		if len(tokens) != 2 {
			out.printf("usage: /balance <user>\n")
			return
		}
		bal, err := l.GetBalance(ctx, tokens[1])
		if err != nil {
			out.printf("balance failed: %v\n", err)
			return
		}
		out.printf("%s has %d points\n", tokens[1], bal)

	default:
		out.printf("operator commands: /grant <user> <points>, /balance <user>\n")
	}
}

func realMain() error {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.LoadConfig(flags, "holdembot")
	if err != nil {
		return fmt.Errorf("configuration error: %v", err)
	}

	// Stdout is the chat, so logs only go to the file.
	logBackend, err := logging.NewLogBackend(cfg.LogBackendConfig())
	if err != nil {
		return fmt.Errorf("failed to create log backend: %v", err)
	}
	defer logBackend.Close()
	log := logBackend.Logger("BOT")

	l, err := ledger.Open(cfg.Ledger.Kind, cfg.Ledger.Path, logBackend.Logger("LDGR"))
	if err != nil {
		return fmt.Errorf("failed to open ledger: %v", err)
	}
	defer l.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := server.NewServer(cfg.ServerConfig(), l, logBackend)
	gw := gateway.New(srv, cfg.GatewayConfig(), logBackend.Logger("GTWY"))
	out := &console{w: os.Stdout}
	state := bot.NewState(srv, gw, out, log)

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		state.Run(ctx, srv.Events())
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			log.Errorf("Failed to read input: %v", err)
		}
	}()

	log.Infof("Bot started with %s ledger at %s", cfg.Ledger.Kind, cfg.Ledger.Path)
	out.printf("Type \"<channel> <user>: !help\" to get started.\n")
	readLines(ctx, log, l, state, out, lines)

	log.Infof("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	closeErr := srv.Close(shutdownCtx)
	<-relayDone
	if closeErr != nil {
		return fmt.Errorf("unsettled points at shutdown: %v", closeErr)
	}
	return nil
}

func readLines(ctx context.Context, log slog.Logger, l ledger.Ledger, state *bot.State, out *console, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.HasPrefix(line, "/") {
				handleOperator(ctx, l, out, line)
				continue
			}
			channel, user, text, ok := parseLine(line)
			if !ok {
				if strings.TrimSpace(line) != "" {
					out.printf("expected \"<channel> <user>: <text>\"\n")
				}
				continue
			}
			log.Tracef("%s in %s: %s", user, channel, text)
			state.HandleMessage(ctx, channel, user, text)
		}
	}
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
