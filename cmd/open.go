package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tecywiz121/libkdbx/kdbx"
)

// openCmd represents the open command
var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open a KDBX database and print its groups and entries",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c.Password = viper.GetString("password")
		c.KeyFile = viper.GetString("keyfile")

		if c.Password == "" && c.KeyFile == "" {
			fmt.Fprintln(os.Stderr, "open: one of --password or --keyfile is required")
			os.Exit(1)
		}

		db, err := openDatabase(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "open: %s\n", err)
			os.Exit(2)
		}

		for _, w := range db.Warnings() {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}

		printGroups(db.Groups(), 0)
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().String("password", "", "database passphrase")
	openCmd.Flags().String("keyfile", "", "path to a key file whose contents are pushed as additional key material")
	viper.BindPFlags(openCmd.Flags())
}

// openDatabase reads path, pushes the configured key material, and loads it.
func openDatabase(path string) (*kdbx.Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	db := kdbx.New()
	if c.Password != "" {
		db.PushKey([]byte(c.Password))
	}
	if c.KeyFile != "" {
		key, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, err
		}
		db.PushKey(key)
	}

	if err := db.Load(f); err != nil {
		return nil, err
	}
	return db, nil
}

func printGroups(groups []*kdbx.Group, depth int) {
	for _, g := range groups {
		fmt.Printf("%s%s (%s)\n", indent(depth), g.UUID(), g.Name())
		for _, e := range g.Entries() {
			user, _ := e.GetString("UserName")
			fmt.Printf("%s  %s %s\n", indent(depth), e.UUID(), user)
		}
		printGroups(g.Groups(), depth+1)
	}
}

func indent(depth int) string {
	out := ""
	for i := 0; i < depth; i++ {
		out += "  "
	}
	return out
}
