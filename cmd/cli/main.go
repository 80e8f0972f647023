package main

import (
	"log"

	"github.com/absmach/cohort/cli"
	"github.com/absmach/cohort/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	var (
		hostURL   = cli.DefHostURL
		tlsVerify = cli.DefTLSVerification
	)

	rootCmd := &cobra.Command{
		Use:   "cohort-cli",
		Short: "Cohort CLI",
		Long:  `Cohort CLI is a command line interface for starting and inspecting federated training runs.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				HostURL:         hostURL,
				TLSVerification: tlsVerify,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&hostURL, "host-url", "u", hostURL, "Host API URL")
	rootCmd.PersistentFlags().BoolVar(&tlsVerify, "tls-verify", tlsVerify, "Verify the host's TLS certificate")

	rootCmd.AddCommand(cli.NewRunsCmd())
	rootCmd.AddCommand(cli.NewClientsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
