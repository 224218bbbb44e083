package cmd

import (
	"fmt"
	"os"

	"gradeway-backend/lib/scrapers/webtop"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(gradesCmd)
}

var gradesCmd = &cobra.Command{
	Use:   "grades <username> <password>",
	Short: "Logs in and prints both grading periods.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portal, profile, err := runFlow(cmd.Context(), args[0], args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		grades, err := portal.Grades(cmd.Context(), profile.UserID, profile.ClassCode)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		period1, period2 := webtop.PartitionPeriods(
			grades, webtop.DefaultPeriod1ID, webtop.DefaultPeriod2ID)

		renderPeriod("Period 1", period1)
		renderPeriod("Period 2", period2)
	},
}

func renderPeriod(title string, grades []webtop.Grade) {
	fmt.Println(title)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "Subject", "Title", "Grade", "Weight"})
	for _, g := range grades {
		grade := g.GradeTranslation
		if g.Grade != nil {
			grade = fmt.Sprintf("%g", *g.Grade)
		}
		t.AppendRow(table.Row{g.Date, g.Subject, g.Title, grade, g.Weight})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
