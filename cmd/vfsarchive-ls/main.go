package main

import "os"

func main() {
	rootCmd := buildRootCommand()
	rootCmd.AddCommand(buildLsCommand())
	rootCmd.AddCommand(buildCatCommand())
	rootCmd.AddCommand(buildStatCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
