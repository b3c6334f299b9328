// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nttcom/goldp/internal/pkg/version"
)

func newVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use: "version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("ldpctl " + version.Version())
		},
	}
	return versionCmd
}
