// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "ldpctl",
	}

	rootCmd.AddCommand(newDecodeCmd(), newVersionCmd())
	rootCmd.Run = runRootCmd

	return rootCmd
}

func runRootCmd(cmd *cobra.Command, args []string) {
	cmd.HelpFunc()(cmd, args)
}
