package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/ledger"
	"github.com/radieske/foundersnet-market-poc/internal/client/session"
	"github.com/radieske/foundersnet-market-poc/internal/client/watch"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
)

// flags persistentes -> chaves lidas por config.LoadClient
var flagKeys = []struct{ flag, key, usage string }{
	{"backend", "BACKEND_URL", "backend base URL"},
	{"chain", "CHAIN", "chain: evm | algorand | solana"},
	{"wallet", "WALLET_PROVIDER", "wallet provider: demo | evm"},
	{"admin", "ADMIN_ADDRESS", "admin address"},
	{"state-dir", "STATE_DIR", "local state directory"},
	{"account-set", "ACCOUNT_SET", "built-in accounts: demo | localnet"},
	{"accounts-file", "ACCOUNTS_FILE", "YAML file with accounts"},
	{"watch-url", "WATCH_URL", "websocket URL for live updates"},
}

// newRootCmd devolve também o encerramento do app; hooks Post* não rodam quando RunE falha
func newRootCmd() (*cobra.Command, func()) {
	var a *app
	root := &cobra.Command{
		Use:           "market-cli",
		Short:         "Prediction market client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = newApp(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}
	for _, f := range flagKeys {
		root.PersistentFlags().String(f.flag, "", f.usage)
		_ = viper.BindPFlag(f.key, root.PersistentFlags().Lookup(f.flag))
	}
	root.PersistentFlags().Bool("memory", false, "keep local state in memory only")
	_ = viper.BindPFlag("STATE_IN_MEMORY", root.PersistentFlags().Lookup("memory"))

	get := func() *app { return a }
	root.AddCommand(
		accountsCmd(get),
		eventsCmd(get),
		betCmd(get),
		claimCmd(get),
		adminCmd(get),
		statsCmd(get),
		watchCmd(get),
	)
	return root, func() {
		if a != nil {
			a.close()
		}
	}
}

func accountsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "accounts", Short: "List or switch demo accounts"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts and cached balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if _, err := a.session.RefreshBalance(cmd.Context()); err != nil {
				a.log.Debug("balance refresh failed", zap.Error(err))
			}
			fmt.Fprint(a.out, renderAccounts(a.registry.ListAccounts(), a.session.Active().ID, a.balances.Cached, a.cfg.Chain))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "switch <id|address>",
		Short: "Make another account active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id := args[0]
			if acc, ok := a.registry.ByAddress(id); ok {
				id = acc.ID
			}
			acc, err := a.session.SwitchAccount(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "active: %s (%s)\n", acc.DisplayName, chainaddr.Format(a.cfg.Chain, a.session.Balance()))
			return nil
		},
	})
	return cmd
}

func eventsCmd(get func() *app) *cobra.Command {
	var stake string
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"board"},
		Short:   "Show events with odds and potential returns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			preview, err := chainaddr.ToBase(a.cfg.Chain, stake)
			if err != nil {
				return apperr.Validation("events", "%v", err)
			}
			b, err := a.session.Board(cmd.Context(), preview)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderBoard(b, a.cfg.Chain))
			return nil
		},
	}
	cmd.Flags().StringVar(&stake, "stake", "1", "stake used for the potential return preview")
	return cmd
}

func parseEventID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("args", "invalid event id %q", s)
	}
	return id, nil
}

func betCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bet <event-id> <yes|no> <amount>",
		Short: "Place a bet; amount in the chain's native unit (e.g. 0.5 SOL)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			choice, err := ledger.ParseChoice(args[1])
			if err != nil {
				return err
			}
			amount, err := chainaddr.ToBase(a.cfg.Chain, args[2])
			if err != nil {
				return apperr.Validation("bet", "%v", err)
			}
			res, err := a.session.PlaceBet(cmd.Context(), id, choice, amount)
			if err != nil {
				return err
			}
			if res.Previous != "" {
				fmt.Fprintf(a.out, "replaced previous %s bet on event #%d\n", res.Previous, id)
			}
			fmt.Fprintf(a.out, "tx %s · balance %s\n", res.Receipt.TxRef, chainaddr.Format(a.cfg.Chain, res.Balance))
			return nil
		},
	}
}

func claimCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "claim <event-id>",
		Short: "Claim winnings on a resolved event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			res, err := a.session.Claim(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "payout %s · balance %s\n",
				chainaddr.Format(a.cfg.Chain, res.Payout), chainaddr.Format(a.cfg.Chain, res.Balance))
			return nil
		},
	}
}

func adminCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Admin actions (create and resolve events)"}

	var (
		in  time.Duration
		end int64
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			endTime := end
			if endTime == 0 {
				endTime = time.Now().Add(in).Unix()
			}
			ev, err := a.session.CreateEvent(cmd.Context(), args[0], endTime)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "event #%d %q closes %s\n", ev.ID, ev.Name, time.Unix(ev.EndTime, 0).Format(time.RFC3339))
			return nil
		},
	}
	create.Flags().DurationVar(&in, "in", 24*time.Hour, "time until the event closes")
	create.Flags().Int64Var(&end, "end", 0, "closing time as unix seconds (overrides --in)")

	resolve := &cobra.Command{
		Use:   "resolve <event-id> <yes|no>",
		Short: "Resolve an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			outcome, err := ledger.ParseChoice(args[1])
			if err != nil {
				return err
			}
			ev, err := a.session.ResolveEvent(cmd.Context(), id, outcome.Bool())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "event #%d resolved %s\n", ev.ID, ledger.ChoiceOf(ev.Outcome))
			return nil
		},
	}

	cmd.AddCommand(create, resolve)
	return cmd
}

func statsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show your bet stats and platform totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			fmt.Fprint(a.out, renderStats(a.session.Stats()))
			s, err := a.backend.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "platform: %d events · %d bets · volume %s\n",
				s.EventCount, s.BetCount, chainaddr.Format(a.cfg.Chain, s.TotalVolume))
			return nil
		},
	}
}

func betsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bets <event-id>",
		Short: "Show the choices recorded locally for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderEventBets(id, a.session.Ledger.BetsForEvent(id), a.registry.ByAddress))
			return nil
		},
	}
}

func watchCmd(get func() *app) *cobra.Command {
	var stake string
	cmd := &cobra.Command{
		Use:   "watch [event-id...]",
		Short: "Follow live market updates and redraw the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ids := make([]int64, 0, len(args))
			for _, s := range args {
				id, err := parseEventID(s)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			preview, err := chainaddr.ToBase(a.cfg.Chain, stake)
			if err != nil {
				return apperr.Validation("watch", "%v", err)
			}

			redraw := func(ctx context.Context) {
				b, err := a.session.Board(ctx, preview)
				switch {
				case errors.Is(err, session.ErrSuperseded):
					// uma atualização mais nova já vai redesenhar
					return
				case err != nil:
					last, ok := a.session.LastBoard()
					if !ok {
						a.log.Warn("board refresh failed", zap.Error(err))
						return
					}
					fmt.Fprintln(a.out, dimStyle.Render("events unavailable, showing last board: "+err.Error()))
					b = last
				}
				fmt.Fprint(a.out, renderBoard(b, a.cfg.Chain))
			}
			ctx := cmd.Context()
			redraw(ctx)

			w := &watch.Watcher{
				URL:      a.cfg.WatchURL,
				Log:      a.log,
				EventIDs: ids,
				OnUpdate: func(ev events.MarketEvent) {
					fmt.Fprintln(a.out, dimStyle.Render(fmt.Sprintf("update: %s on event #%d", ev.Type, ev.EventID)))
					redraw(ctx)
				},
			}
			w.Start(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&stake, "stake", "1", "stake used for the potential return preview")
	return cmd
}

// exitCode separa erros de configuração dos demais
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case apperr.Is(err, apperr.KindConfig):
		return 2
	default:
		return 1
	}
}
