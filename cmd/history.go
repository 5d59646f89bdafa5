package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"archiver/internal/archivedb"
)

var (
	flagHistoryStatus string
	flagHistoryURL    string
	flagHistoryLimit  uint64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous archive runs",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().StringVarP(&flagHistoryStatus, "status", "s", "", "Only show runs with status: in_progress | done | failed | aborted")
	historyCmd.Flags().StringVar(&flagHistoryURL, "url", "", "Only show runs of this URL")
	historyCmd.Flags().Uint64VarP(&flagHistoryLimit, "limit", "n", 20, "Maximum number of runs (0 for all)")
}

var statusStyles = map[archivedb.Status]lipgloss.Style{
	archivedb.StatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	archivedb.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	archivedb.StatusAborted:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	archivedb.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
}

var dimStyle = lipgloss.NewStyle().Faint(true)

func historyRun(cmd *cobra.Command, args []string) error {
	status := archivedb.Status(flagHistoryStatus)
	switch status {
	case "", archivedb.StatusInProgress, archivedb.StatusDone, archivedb.StatusFailed, archivedb.StatusAborted:
	default:
		return fmt.Errorf("unknown status %q", flagHistoryStatus)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	db, err := archivedb.Open(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("opening archive database: %w", err)
	}
	defer db.Close()

	records, err := db.List(cmd.Context(), archivedb.Filter{
		Status: status,
		URL:    flagHistoryURL,
		Limit:  flagHistoryLimit,
	})
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No archive runs found.")
		return nil
	}

	styled := out == io.Writer(os.Stdout) && term.IsTerminal(int(os.Stdout.Fd()))
	for _, r := range records {
		fmt.Fprintln(out, formatRecord(r, styled))
	}
	return nil
}

func formatRecord(r archivedb.Record, styled bool) string {
	status := fmt.Sprintf("%-11s", r.Status)
	started := r.StartedAt.Local().Format(time.DateTime)
	detail := r.Title
	switch r.Status {
	case archivedb.StatusFailed:
		detail = r.Reason
	case archivedb.StatusDone:
		detail = fmt.Sprintf("%s [%d media]", r.Title, r.MediaCount)
	}

	if styled {
		if style, ok := statusStyles[r.Status]; ok {
			status = style.Render(status)
		}
		started = dimStyle.Render(started)
	}

	line := fmt.Sprintf("%s  %s  %s", started, status, r.URL)
	if detail != "" {
		line += "  " + detail
	}
	return line
}
