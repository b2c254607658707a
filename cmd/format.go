package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"twotokens/internal/store"
)

const (
	formatTable    = "table"
	formatSummary  = "summary"
	formatDetailed = "detailed"

	displayDate = "2006-01-02 15:04"
)

var separator = strings.Repeat("-", 80)

func printEvents(w io.Writer, events []store.Event, format string) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}
	switch format {
	case formatTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDATE\tSTATUS\tSPONSOR\tTASKS")
		for _, e := range events {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
				e.ID, e.Name, e.Date.Format(displayDate), e.Status, e.Sponsor, len(e.Tasks))
		}
		return tw.Flush()
	case formatSummary:
		for _, e := range events {
			fmt.Fprintf(w, "ID: %d | %s | %s | %s\n", e.ID, e.Name, e.Date.Format(displayDate), e.Status)
		}
		return nil
	case formatDetailed:
		fmt.Fprintln(w, "Events:")
		fmt.Fprintln(w, separator)
		for _, e := range events {
			printEvent(w, e)
			fmt.Fprintln(w, separator)
		}
		return nil
	}
	return errors.Errorf("unknown format %q, want table|summary|detailed", format)
}

func printEvent(w io.Writer, e store.Event) {
	fmt.Fprintf(w, "ID: %d | %s\n", e.ID, e.Name)
	fmt.Fprintf(w, "Date: %s\n", e.Date.Format(displayDate))
	fmt.Fprintf(w, "Status: %s\n", e.Status)
	if e.Sponsor != "" {
		fmt.Fprintf(w, "Sponsor: %s\n", e.Sponsor)
	}
	if e.Director != "" {
		fmt.Fprintf(w, "Director: %s\n", e.Director)
	}
	if len(e.Team) > 0 {
		fmt.Fprintf(w, "Team: %s\n", strings.Join(e.Team, ", "))
	}
	if e.Topic != "" {
		fmt.Fprintf(w, "Topic: %s\n", e.Topic)
	}
	if e.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", e.Description)
	}
	if len(e.Tasks) > 0 {
		fmt.Fprintf(w, "Associated Tasks: %d\n", len(e.Tasks))
	}
}
