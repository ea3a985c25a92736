package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tecywiz121/libkdbx/kdbx"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Print a KDBX file's header scalars without requiring a passphrase",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "inspect: %s\n", err)
			os.Exit(2)
		}
		defer f.Close()

		h, err := kdbx.InspectHeader(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "inspect: %s\n", err)
			os.Exit(2)
		}

		fmt.Printf("version:       %d.%d\n", h.FileVersionMajor, h.FileVersionMinor)
		fmt.Printf("cipher id:     %x\n", h.CipherID)
		fmt.Printf("compression:   %d\n", h.CompressionFlags)
		fmt.Printf("transform rds: %d\n", h.TransformRounds)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
