package main

import (
	"fmt"
	"os"

	"margin_bot/internal/packfile"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var password string

var rootCmd = &cobra.Command{
	Use:   "sealer",
	Short: "Seal and open bot packages",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if password == "" {
			password = os.Getenv("PACKAGE_PASSWORD")
		}
		return nil
	},
	SilenceUsage: true,
}

var sealCmd = &cobra.Command{
	Use:   "seal <package.yaml> <out>",
	Short: "Encrypt a plain yaml package with the password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if password == "" {
			return errors.New("password is required to seal")
		}
		pkg, err := packfile.Read(args[0], "")
		if err != nil {
			return err
		}
		if err := packfile.Write(args[1], pkg, password); err != nil {
			return errors.Wrap(err, "seal")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d entries sealed into %s\n", len(pkg), args[1])
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <sealed> <out.yaml>",
	Short: "Decrypt a sealed package into plain yaml",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := packfile.Read(args[0], password)
		if err != nil {
			return err
		}
		if err := packfile.Write(args[1], pkg, ""); err != nil {
			return errors.Wrap(err, "open")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d entries written to %s\n", len(pkg), args[1])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <package>",
	Short: "Print package entries without secrets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := packfile.Read(args[0], password)
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"#", "Owner", "Pair", "Chat ID", "Your base", "Your quote", "Margin base", "Margin quote", "Sandbox"})
		for _, idx := range pkg.Indexes() {
			e := pkg[idx]
			p := e.Params(false)
			t.AppendRow(table.Row{idx, e.Owner, p.Pair, e.ChatID, e.YourBase, e.YourQuote, e.MarginBase, e.MarginQuote, e.Sandbox})
		}
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func main() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "package password (default $PACKAGE_PASSWORD)")
	rootCmd.AddCommand(sealCmd, openCmd, showCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
