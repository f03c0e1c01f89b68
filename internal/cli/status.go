package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/tokenwatch/internal/indexing/health"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running monitor",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "health server address (default localhost:<server.port>)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	report, err := fetchReport(ctx, addr)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func fetchReport(ctx context.Context, addr string) (*health.HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/health/detailed", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach health server: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health server returned %s", resp.Status)
	}

	var report health.HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode health report: %w", err)
	}
	return &report, nil
}

func printReport(out io.Writer, r *health.HealthReport) {
	d := r.Subscription.Detail

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "STATUS\t%s\n", r.SystemStatus)
	_, _ = fmt.Fprintf(w, "PHASE\t%s\n", d.Phase)
	_, _ = fmt.Fprintf(w, "RETRIES\t%d/%d\n", d.Retries, d.MaxRetries)
	_, _ = fmt.Fprintf(w, "TRANSACTIONS\t%d\n", d.Transactions)
	_, _ = fmt.Fprintf(w, "SESSIONS\t%d\n", d.Sessions)
	if d.SessionID != "" {
		_, _ = fmt.Fprintf(w, "SESSION\t%s\n", d.SessionID)
	}
	if !d.LastRecord.IsZero() {
		_, _ = fmt.Fprintf(w, "LAST RECORD\t%s (%s ago)\n", d.LastRecord.Format(time.RFC3339), r.Subscription.Idle.Round(time.Second))
	}
	if r.Subscription.Reason != "" {
		_, _ = fmt.Fprintf(w, "REASON\t%s\n", r.Subscription.Reason)
	}
	if d.LastError != "" {
		_, _ = fmt.Fprintf(w, "LAST ERROR\t%s\n", d.LastError)
	}
	if r.Storage != nil {
		_, _ = fmt.Fprintf(w, "STORAGE\t%s (%d stored)\n", r.Storage.Status, r.Storage.Transactions)
		if r.Storage.Error != "" {
			_, _ = fmt.Fprintf(w, "STORAGE ERROR\t%s\n", r.Storage.Error)
		}
	}
	_ = w.Flush()
}
