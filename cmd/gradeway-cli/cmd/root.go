package cmd

import (
	"fmt"
	"os"

	"gradeway-backend/lib/restyutil"
	"gradeway-backend/lib/scrapers/moe"
	"gradeway-backend/lib/scrapers/webtop"
	"gradeway-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	apiBaseURL  string
	insecureApi bool
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "gradeway-cli",
	Short: "gradeway-cli runs the grades portal login flow from the terminal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)
		if debug {
			moe.SetRestyInstrumentOutput(
				restyutil.NewFilesystemOutput("data/resty_telemetry/moe"),
			)
			webtop.SetRestyInstrumentOutput(
				restyutil.NewFilesystemOutput("data/resty_telemetry/webtop"),
			)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-base", "",
		"Base url of the portal api host, defaults to production.")
	rootCmd.PersistentFlags().BoolVar(&insecureApi, "insecure-api", true,
		"Skip certificate validation for the portal api host.")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Verbose logging plus full request/response dumps under data/resty_telemetry.")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
