package emitter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vietddude/tokenwatch/internal/core/domain"
)

const (
	// TimeLayout renders times like "May 1, 02:30:00 PM".
	TimeLayout = "Jan 2, 03:04:05 PM"

	// DefaultTruncateLength is the number of characters kept at each end.
	DefaultTruncateLength = 6

	// NotAvailable renders an absent signature.
	NotAvailable = "N/A"

	ruleWidth = 80
)

// ConsoleConfig configures the console presenter.
type ConsoleConfig struct {
	TruncateLength int
	Location       *time.Location
	Registry       *domain.Registry
}

type consoleStyles struct {
	rule    lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	sig     lipgloss.Style
	program lipgloss.Style
	dim     lipgloss.Style
	account lipgloss.Style
}

func newConsoleStyles(r *lipgloss.Renderer) consoleStyles {
	return consoleStyles{
		rule:    r.NewStyle().Foreground(lipgloss.Color("#00BFFF")),
		title:   r.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		label:   r.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
		value:   r.NewStyle().Foreground(lipgloss.Color("#CCCCCC")),
		sig:     r.NewStyle().Foreground(lipgloss.Color("#FFA500")),
		program: r.NewStyle().Foreground(lipgloss.Color("#32CD32")),
		dim:     r.NewStyle().Faint(true),
		account: r.NewStyle().Foreground(lipgloss.Color("#1E90FF")),
	}
}

// Console renders one report per admitted transaction. Reports are written
// whole, so concurrent emits never interleave.
type Console struct {
	w      io.Writer
	cfg    ConsoleConfig
	styles consoleStyles
	mu     sync.Mutex
}

// NewConsole creates a console presenter writing to w. Colors are enabled
// only when w is a terminal.
func NewConsole(w io.Writer, cfg ConsoleConfig) *Console {
	if cfg.TruncateLength <= 0 {
		cfg.TruncateLength = DefaultTruncateLength
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Registry == nil {
		cfg.Registry = domain.NewRegistry(nil)
	}
	return &Console{
		w:      w,
		cfg:    cfg,
		styles: newConsoleStyles(lipgloss.NewRenderer(w)),
	}
}

func (c *Console) Emit(ctx context.Context, event *domain.Event) error {
	report := c.Render(event)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, report)
	return err
}

func (c *Console) Close() error { return nil }

// Render formats the report for event.
func (c *Console) Render(event *domain.Event) string {
	s := c.styles
	n := c.cfg.TruncateLength
	rule := s.rule.Render(strings.Repeat("━", ruleWidth))

	summary := event.Summary
	if summary == nil {
		summary = domain.NewTransactionSummary(event.EmittedAt)
	}

	signature := NotAvailable
	if summary.Signature != nil {
		signature = Truncate(*summary.Signature, n)
	}

	var b strings.Builder
	b.WriteString("\n" + rule + "\n")
	b.WriteString(s.title.Render(fmt.Sprintf("Token Transaction Details #%d", event.Seq)) + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Time:      "), s.value.Render(c.FormatTime(summary.Timestamp)))
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Signature: "), s.sig.Render(signature))
	if summary.Slot > 0 {
		fmt.Fprintf(&b, "%s %s\n", s.label.Render("Slot:      "), s.value.Render(fmt.Sprint(summary.Slot)))
	}

	b.WriteString("\n" + s.label.Render("Programs Involved:") + "\n")
	for _, program := range event.Programs {
		b.WriteString(s.program.Render("   • "+c.cfg.Registry.Name(program)) + "\n")
		b.WriteString(s.dim.Render("     "+Truncate(program, n)) + "\n")
	}

	if len(event.Others) > 0 {
		b.WriteString("\n" + s.label.Render("Wallet Accounts:") + "\n")
		for i, account := range event.Others {
			line := fmt.Sprintf("   • Account %d: %s", i+1, Truncate(account, n))
			b.WriteString(s.account.Render(line) + "\n")
		}
	}

	b.WriteString(rule + "\n\n")
	return b.String()
}

// FormatTime renders t in the configured location.
func (c *Console) FormatTime(t time.Time) string {
	return t.In(c.cfg.Location).Format(TimeLayout)
}

// Truncate keeps the first and last n characters joined by "...". Strings of
// at most 2n characters are returned unchanged.
func Truncate(s string, n int) string {
	if n <= 0 {
		n = DefaultTruncateLength
	}
	r := []rune(s)
	if len(r) <= 2*n {
		return s
	}
	return string(r[:n]) + "..." + string(r[len(r)-n:])
}
