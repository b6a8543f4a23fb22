package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// 定义版本号
const Version = "1.1.0"

var rootCmd = &cobra.Command{
	Use:          "tracer",
	Short:        "Line-level debugger for traced programs",
	Long:         `tracer runs a program description under an execution-event tracer and drives it from a console`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", Version)
	},
}

func main() {
	rootCmd.Version = Version
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal 判断文件是否是终端
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
