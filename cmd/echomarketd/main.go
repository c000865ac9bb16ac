package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "echomarketd",
		Short: "Stock ticker analysis service",
	}
	root.AddCommand(serveCMD(), analyzeCMD(), migrateCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
