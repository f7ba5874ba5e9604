package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/icon-project/btp2/common/cli"
	"github.com/spf13/cobra"
)

var (
	version = "unknown"
	build   = "unknown"
)

func main() {
	rootCmd, rootVc := cli.NewCommand(nil, nil, "abi-cli", "ABI-SDK CLI")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	cli.SetEnvKeyReplacer(rootVc, strings.NewReplacer(" ", "_", ".", "_", "-", "_"))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(rootCmd.Use, "version", version, build)
		},
	})

	var logoLines = []string{`
     _    ____ ___       ____  ____  _  __
    / \  | __ )_ _|     / ___||  _ \| |/ /
   / _ \ |  _ \| |_____\___ \| | | | ' / 
  / ___ \| |_) | |_____|___) | |_| | . \ 
 /_/   \_\____/___|    |____/|____/|_|\_\
`,
	}
	NewCodecCommands(rootCmd)
	NewServerCommand(rootCmd, rootVc, version, build, logoLines)
	NewApiCommand(rootCmd, rootVc)
	NewRegistryCommand(rootCmd, rootVc)

	genMdCmd := cli.NewGenerateMarkdownCommand(rootCmd, rootVc)
	genMdCmd.Hidden = true

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}
}
