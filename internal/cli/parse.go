package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chronoview/internal/calendar"
	"chronoview/internal/dateparse"
	"chronoview/internal/model"
	"chronoview/internal/timeline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "parse <date>",
		Short: "Show how a date string is read and which instant it becomes",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}

	cmd.Flags().Bool("end", false, "Read the value as an end date")
	cmd.Flags().StringP("type", "t", "box", "Item type the value belongs to")

	RootCmd.AddCommand(cmd)
}

// parseReport is the JSON printed by the parse command.
type parseReport struct {
	Input      string     `json:"input"`
	Year       int        `json:"year"`
	Month      int        `json:"month"`
	Day        int        `json:"day"`
	Hour       int        `json:"hour"`
	Minute     int        `json:"minute"`
	Normalized string     `json:"normalized"`
	Readable   string     `json:"readable"`
	Strategy   string     `json:"strategy"`
	Instant    *time.Time `json:"instant,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	isEnd, _ := cmd.Flags().GetBool("end")
	rawType, _ := cmd.Flags().GetString("type")

	report, err := describeDate(args[0], cfg.DateFormat, isEnd, timeline.ValidateType(rawType), cfg.Location())
	if werr := writeJSON(os.Stdout, report); werr != nil {
		return werr
	}
	return err
}

func describeDate(raw string, cfg dateparse.Config, isEnd bool, typ model.ItemType, loc *time.Location) (parseReport, error) {
	report := parseReport{Input: raw}

	c, err := dateparse.Parse(raw, cfg, isEnd, typ)
	if err != nil {
		report.Error = err.Error()
		return report, fmt.Errorf("parse %q: %w", raw, err)
	}
	report.Year, report.Month, report.Day = c.Year, c.Month+1, c.Day
	report.Hour, report.Minute = c.Hour, c.Minute
	report.Normalized, report.Readable = c.Normalized, c.Readable
	report.Strategy = "direct"
	if calendar.UsesToken(c.Year) {
		report.Strategy = "token"
	}

	t, err := calendar.Build(c, loc)
	if err != nil {
		report.Error = err.Error()
		return report, fmt.Errorf("build %q: %w", raw, err)
	}
	report.Instant = &t
	return report, nil
}
