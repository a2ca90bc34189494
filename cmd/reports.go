package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tabstat/internal/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var repShowFormat string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage saved reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.ReportsDir)
		if err != nil {
			return err
		}
		entries, err := s.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No saved reports")
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"ID", "Created", "Name", "Rows", "Columns", "Warnings"})
		for _, e := range entries {
			t.AppendRow(table.Row{e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Name, e.Rows, e.Columns, e.Warnings})
		}
		t.Render()
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved report (full id or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(repShowFormat); err != nil {
			return err
		}
		s, err := store.Open(cfg.ReportsDir)
		if err != nil {
			return err
		}
		rep, err := s.Load(args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), repShowFormat, rep, rep.Markdown)
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.ReportsDir)
		if err != nil {
			return err
		}
		e, err := s.Resolve(args[0])
		if err != nil {
			return err
		}
		if err := s.Delete(e.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted report %s\n", e.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
	reportsShowCmd.Flags().StringVarP(&repShowFormat, "format", "f", "md", "output format: md|json|yaml")
}
