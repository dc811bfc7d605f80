package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ironsheep/target-vision/internal/recorder"
	"github.com/ironsheep/target-vision/internal/report"
)

var reportOpts struct {
	session  string
	htmlPath string
	pngPath  string
}

var reportCmd = &cobra.Command{
	Use:   "report DATABASE",
	Short: "Summarise and chart recorded sessions",
	Long: `Without --session, lists the sessions in a recording database. With one,
prints its summary and optionally writes an HTML and/or PNG chart.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportOpts.session, "session", "", "Session ID to report on")
	f.StringVar(&reportOpts.htmlPath, "html", "", "Write an interactive chart to this file")
	f.StringVar(&reportOpts.pngPath, "png", "", "Write a static chart to this file")
}

func runReport(cmd *cobra.Command, args []string) error {
	rec, err := recorder.Open(args[0])
	if err != nil {
		return err
	}
	defer rec.Close()

	if reportOpts.session == "" {
		sessions, err := rec.Sessions()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tSOURCE\tSTARTED\tFRAMES")
		for _, s := range sessions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ID, s.Source, s.StartedAt.Format("2006-01-02 15:04:05"), s.Frames)
		}
		return tw.Flush()
	}

	frames, err := rec.Frames(reportOpts.session)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("session %s has no frames", reportOpts.session)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.Summarize(frames)); err != nil {
		return err
	}

	title := "Session " + reportOpts.session
	if reportOpts.htmlPath != "" {
		f, err := os.Create(reportOpts.htmlPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", reportOpts.htmlPath, err)
		}
		if err := report.WriteHTML(f, title, frames); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if reportOpts.pngPath != "" {
		if err := report.WritePNG(reportOpts.pngPath, title, frames); err != nil {
			return err
		}
	}
	return nil
}
