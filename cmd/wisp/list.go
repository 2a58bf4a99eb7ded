package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wisp-notify/wisp/internal/model"
)

var listOpts struct {
	format string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active popups",
	Long: `List the popups currently registered in the state directory.

Stale records left behind by crashed popups are cleaned up as a side
effect of listing.

Examples:
  # List active popups
  wisp list active

  # Machine-readable output
  wisp list active --format json`,
	RunE: runList,
}

var listActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List active popups",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.AddCommand(listActiveCmd)

	for _, cmd := range []*cobra.Command{listCmd, listActiveCmd} {
		cmd.Flags().StringVarP(&listOpts.format, "format", "f", "plain",
			"Output format (plain, json, yaml)")
	}
}

// listEntry is the serialized form of one active popup.
type listEntry struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Class    string `json:"class,omitempty" yaml:"class,omitempty"`
	Position string `json:"position" yaml:"position"`
	Offset   int    `json:"offset" yaml:"offset"`
	Width    int    `json:"width" yaml:"width"`
	Height   int    `json:"height" yaml:"height"`
	PID      int    `json:"pid" yaml:"pid"`
	Age      string `json:"age" yaml:"age"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	records, err := stateStore.List()
	if err != nil {
		return fmt.Errorf("failed to list popups: %w", err)
	}

	entries := make([]listEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, toListEntry(rec))
	}

	switch listOpts.format {
	case "plain":
		return outputPlain(entries)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(entries)
	default:
		return fmt.Errorf("unknown format %q (plain, json, yaml)", listOpts.format)
	}
}

func toListEntry(rec model.Record) listEntry {
	return listEntry{
		ID:       rec.ID,
		Name:     rec.Name,
		Class:    rec.Class,
		Position: string(rec.Edge),
		Offset:   rec.Offset,
		Width:    rec.Width,
		Height:   rec.Height,
		PID:      rec.PID,
		Age:      humanize.Time(rec.CreatedAtTime()),
		Summary:  rec.Summary,
	}
}

func outputPlain(entries []listEntry) error {
	if len(entries) == 0 {
		fmt.Println("No active popups")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCLASS\tPOSITION\tPID\tAGE\tSUMMARY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, orDash(e.Name), orDash(e.Class), e.Position, e.PID, e.Age, e.Summary)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
