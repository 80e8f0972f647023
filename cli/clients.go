package cli

import (
	"github.com/absmach/cohort/pkg/sdk"
	"github.com/spf13/cobra"
)

func NewClientsCmd() *cobra.Command {
	var (
		name    string
		address string
	)

	cmd := &cobra.Command{
		Use:   "clients [register|view|list|enable|disable|remove]",
		Short: "Clients manager",
		Long:  `Register, view, enable, disable and remove training clients.`,
	}

	registerCmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register client",
		Long: `Register a client with the host. A name is generated when none is given.

Examples:
  cohort-cli clients register client-1 --address http://localhost:9101`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			c, err := csdk.RegisterClient(sdk.ClientRequest{
				ClientID: args[0],
				Name:     name,
				Address:  address,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, c)
		},
	}
	registerCmd.Flags().StringVar(&name, "name", "", "Client name")
	registerCmd.Flags().StringVar(&address, "address", "", "Client HTTP address")

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View client",
		Long:  `View client.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			c, err := csdk.GetClient(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, c)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		Long:  `List clients.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := csdk.ListClients(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	cmd.AddCommand(registerCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(availabilityCmd("enable", true))
	cmd.AddCommand(availabilityCmd("disable", false))
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove client",
		Long:  `Remove client.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := csdk.RemoveClient(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	})

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}

func availabilityCmd(use string, available bool) *cobra.Command {
	short := "Mark client unavailable for selection"
	if available {
		short = "Mark client available for selection"
	}

	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Long:  short + ".",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			c, err := csdk.SetAvailability(args[0], available)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, c)
		},
	}
}
