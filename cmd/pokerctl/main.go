// Command pokerctl inspects and adjusts the points ledger and replays
// archived hands.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"

	"github.com/pointsbot/holdem/pkg/config"
	"github.com/pointsbot/holdem/pkg/ledger"
	"github.com/pointsbot/holdem/pkg/poker"
)

// historyLister is implemented by ledgers that keep a transaction history.
type historyLister interface {
	Transactions(ctx context.Context, userID string, limit int) ([]ledger.Transaction, error)
}

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [global flags] <command> [args]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  balance USER [--add N]                 Show or adjust a balance")
		fmt.Fprintln(os.Stderr, "  history USER [--limit N]               Print recent transactions (JSON)")
		fmt.Fprintln(os.Stderr, "  hand ROOM HAND [--replay] [--dump]     Print an archived hand log")
		fmt.Fprintln(os.Stderr, "\nGlobal flags:")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	cmd := flag.Arg(0)

	cfg, err := config.LoadConfig(flags, "holdembot")
	if err != nil {
		fatal(fmt.Sprintf("Configuration error: %v", err))
	}
	l, err := ledger.Open(cfg.Ledger.Kind, cfg.Ledger.Path, slog.Disabled)
	if err != nil {
		fatalErr(err)
	}
	defer l.Close()

	ctx := context.Background()
	args := flag.Args()[1:]
	switch cmd {
	case "balance":
		err = handleBalance(ctx, os.Stdout, l, args)
	case "history":
		err = handleHistory(ctx, os.Stdout, l, args)
	case "hand":
		err = handleHand(ctx, os.Stdout, l, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		l.Close()
		fatalErr(err)
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func fatalErr(err error) {
	fatal(err.Error())
}

// splitArgs separates positional arguments from flags so flags may
// follow them.
func splitArgs(args []string) (pos, flags []string) {
	for i := 0; i < len(args); i++ {
		if len(args[i]) > 0 && args[i][0] == '-' {
			return pos, args[i:]
		}
		pos = append(pos, args[i])
	}
	return pos, nil
}

func handleBalance(ctx context.Context, w io.Writer, l ledger.Ledger, args []string) error {
	pos, rest := splitArgs(args)
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	add := fs.Int64("add", 0, "Points to add (negative to remove)")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	if len(pos) != 1 {
		return errors.New("balance requires USER")
	}

	if *add != 0 {
		bal, err := l.AdjustBalance(ctx, pos[0], *add, "pokerctl adjustment")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, bal)
		return nil
	}
	bal, err := l.GetBalance(ctx, pos[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(w, bal)
	return nil
}

func handleHistory(ctx context.Context, w io.Writer, l ledger.Ledger, args []string) error {
	pos, rest := splitArgs(args)
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", 20, "Number of transactions")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(pos) != 1 {
		return errors.New("history requires USER")
	}
	h, ok := l.(historyLister)
	if !ok {
		return errors.New("history: this ledger keeps no transaction history")
	}
	txs, err := h.Transactions(ctx, pos[0], *limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(txs)
}

func handleHand(ctx context.Context, w io.Writer, l ledger.Ledger, args []string) error {
	pos, rest := splitArgs(args)
	fs := flag.NewFlagSet("hand", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	replay := fs.Bool("replay", false, "Replay the hand and check the recorded result")
	dump := fs.Bool("dump", false, "Dump the decoded log instead of printing JSON")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("hand: %w", err)
	}
	if len(pos) != 2 {
		return errors.New("hand requires ROOM and HAND")
	}
	handNum, err := strconv.Atoi(pos[1])
	if err != nil {
		return fmt.Errorf("hand: invalid hand number %q", pos[1])
	}
	h, ok := l.(ledger.HandHistory)
	if !ok {
		return errors.New("hand: this ledger keeps no hand history")
	}

	data, err := h.LoadHandLog(ctx, pos[0], handNum)
	if err != nil {
		return err
	}
	var hl poker.HandLog
	if err := json.Unmarshal(data, &hl); err != nil {
		return fmt.Errorf("hand: corrupt log: %w", err)
	}

	if *dump {
		spew.Fdump(w, hl)
	} else {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(hl); err != nil {
			return err
		}
	}
	if *replay {
		return replayHand(w, &hl)
	}
	return nil
}

// replayHand re-deals a logged hand and compares the final stacks with
// the recorded result.
func replayHand(w io.Writer, hl *poker.HandLog) error {
	r, err := poker.ReplayHand(hl, slog.Disabled)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	stacks := r.Stacks()
	ids := make([]string, 0, len(stacks))
	for id := range stacks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "%s: %d\n", id, stacks[id])
	}
	if hl.Result == nil {
		fmt.Fprintln(w, "no recorded result to compare")
		return nil
	}
	for id, want := range hl.Result.Stacks {
		if stacks[id] != want {
			return fmt.Errorf("replay: %s ends with %d, log recorded %d", id, stacks[id], want)
		}
	}
	fmt.Fprintln(w, "replay matches the recorded result")
	return nil
}
