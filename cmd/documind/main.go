package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:          "documind",
		Short:        "Ask questions about uploaded PDFs, audio and video",
		SilenceUsage: true,
	}

	root.AddCommand(serveCMD(), migrateCMD())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
