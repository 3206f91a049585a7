package main

import (
	"github.com/spf13/cobra"
)

func newResultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Retrieve detection results",
	}

	download := &cobra.Command{
		Use:   "download <operation-id> <destination-file>",
		Short: "Download the result of a terminated operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clt, err := newClient()
			if err != nil {
				return err
			}
			return clt.DownloadResultTo(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(download)
	return cmd
}
