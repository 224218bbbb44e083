package cmd

import (
	"context"
	"fmt"
	"os"

	"gradeway-backend/lib/scrapers/moe"
	"gradeway-backend/lib/scrapers/webtop"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

// runFlow performs the full federation + portal login and hands back
// the authenticated portal client with the user's profile.
func runFlow(ctx context.Context, username, password string) (*webtop.Client, webtop.Profile, error) {
	moeClient, err := moe.NewClient(moe.ClientOptions{})
	if err != nil {
		return nil, webtop.Profile{}, err
	}
	result, err := moeClient.Login(ctx, username, password)
	if err != nil {
		return nil, webtop.Profile{}, err
	}

	portal := webtop.NewClient(moeClient.Jar(), webtop.ClientOptions{
		BaseURL:            apiBaseURL,
		InsecureSkipVerify: insecureApi,
		UserAgent:          moe.BrowserUserAgent,
	})
	profile, err := portal.LoginKey(ctx, result.Key)
	if err != nil {
		return nil, webtop.Profile{}, err
	}
	return portal, profile, nil
}

var loginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "Logs in and prints the resulting user profile.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, profile, err := runFlow(cmd.Context(), args[0], args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Field", "Value"})
		t.AppendRow(table.Row{"Name", profile.FullName})
		t.AppendRow(table.Row{"User ID", profile.UserID})
		t.AppendRow(table.Row{"School", profile.SchoolName})
		t.AppendRow(table.Row{"Institution", profile.InstitutionCode})
		t.AppendRow(table.Row{"Class", fmt.Sprintf("%s %d", profile.ClassCode, profile.ClassNumber)})
		t.AppendRow(table.Row{"Teacher", profile.IsTeacher != 0})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
