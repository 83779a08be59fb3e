package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/client/ledger"
	"github.com/radieske/foundersnet-market-poc/internal/client/session"
	"github.com/radieske/foundersnet-market-poc/internal/eventview"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	yesStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	noStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	statusStyles = map[eventview.Status]lipgloss.Style{
		eventview.StatusOpen:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		eventview.StatusClosed:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		eventview.StatusResolved: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	}

	noticeStyles = map[session.Level]lipgloss.Style{
		session.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		session.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		session.LevelWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		session.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// noticePrinter mostra as notificações da sessão no terminal
type noticePrinter struct{ w io.Writer }

func (p noticePrinter) Notify(n session.Notice) {
	st, ok := noticeStyles[n.Level]
	if !ok {
		st = noticeStyles[session.LevelInfo]
	}
	fmt.Fprintf(p.w, "%s %s\n", st.Render("["+n.Title+"]"), n.Message)
}

func choiceStyle(c ledger.Choice) lipgloss.Style {
	if c == ledger.No {
		return noStyle
	}
	return yesStyle
}

func renderBoard(b session.Board, chain chainaddr.Chain) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%s · %s", b.Account.DisplayName, chainaddr.Format(chain, b.Balance))))
	sb.WriteString("\n")
	if b.BalanceErr != nil {
		sb.WriteString(dimStyle.Render("balance may be stale: "+b.BalanceErr.Error()) + "\n")
	}
	if len(b.Rows) == 0 {
		sb.WriteString(dimStyle.Render("no events yet") + "\n")
		return sb.String()
	}

	for _, r := range b.Rows {
		status := statusStyles[r.Status].Render(fmt.Sprintf("%-8s", r.Status))
		fmt.Fprintf(&sb, "#%-4d %s %s\n", r.Event.ID, status, r.Event.Name)
		fmt.Fprintf(&sb, "      %s %s%%  %s %s%%  pool %s",
			yesStyle.Render("YES"), r.YesPct.StringFixed(2),
			noStyle.Render("NO"), r.NoPct.StringFixed(2),
			chainaddr.Format(chain, r.Event.Pool().Total()))
		switch r.Status {
		case eventview.StatusOpen:
			fmt.Fprintf(&sb, "  closes in %s\n", formatLeft(r.TimeLeft))
			fmt.Fprintf(&sb, "      %s\n", dimStyle.Render(fmt.Sprintf("stake %s returns YES %s / NO %s",
				chainaddr.Format(chain, b.PreviewStake),
				chainaddr.Format(chain, r.YesReturn.Floor()),
				chainaddr.Format(chain, r.NoReturn.Floor()))))
		case eventview.StatusResolved:
			fmt.Fprintf(&sb, "  outcome %s\n", choiceStyle(ledger.ChoiceOf(r.Event.Outcome)).Render(string(ledger.ChoiceOf(r.Event.Outcome))))
		default:
			sb.WriteString("  awaiting resolution\n")
		}
		if r.Choice != "" {
			fmt.Fprintf(&sb, "      your bet: %s\n", choiceStyle(r.Choice).Render(string(r.Choice)))
		}
	}
	return sb.String()
}

func renderAccounts(list []accounts.Account, activeID string, balanceOf func(id string) decimal.Decimal, chain chainaddr.Chain) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Accounts") + "\n")
	for _, a := range list {
		marker := "  "
		if a.ID == activeID {
			marker = yesStyle.Render("*") + " "
		}
		role := ""
		if a.Role == accounts.RoleAdmin {
			role = dimStyle.Render(" (admin)")
		}
		fmt.Fprintf(&sb, "%s%-18s %s%s\n", marker, a.DisplayName, chainaddr.Format(chain, balanceOf(a.ID)), role)
		fmt.Fprintf(&sb, "  %s\n", dimStyle.Render("id "+a.ID+" · "+a.Address))
	}
	return sb.String()
}

// renderEventBets mostra as escolhas do ledger local; carteiras cadastradas aparecem pelo nome
func renderEventBets(eventID int64, bets []ledger.EventBet, byAddress func(string) (accounts.Account, bool)) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("Bets on event #%d", eventID)) + "\n")
	if len(bets) == 0 {
		sb.WriteString(dimStyle.Render("no bets recorded on this device") + "\n")
		return sb.String()
	}
	for _, b := range bets {
		who := b.Wallet
		if acc, ok := byAddress(b.Wallet); ok {
			who = acc.DisplayName
		}
		fmt.Fprintf(&sb, "%-18s %s\n", who, choiceStyle(b.Choice).Render(string(b.Choice)))
	}
	return sb.String()
}

func renderStats(st ledger.Stats) string {
	return fmt.Sprintf("%s total %d  %s %d  %s %d\n",
		headerStyle.Render("Your bets"), st.Total,
		yesStyle.Render("YES"), st.Yes,
		noStyle.Render("NO"), st.No)
}

// formatLeft mostra o tempo restante sem segundos quando passa de uma hora
func formatLeft(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d >= 24*time.Hour:
		days := d / (24 * time.Hour)
		return fmt.Sprintf("%dd%dh", days, (d-days*24*time.Hour)/time.Hour)
	case d >= time.Hour:
		return d.Truncate(time.Minute).String()
	default:
		return d.Truncate(time.Second).String()
	}
}
