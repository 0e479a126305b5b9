package main

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

var rootCmd = &cobra.Command{
	Use:   "tinybrowser",
	Short: "A terminal harness for the tinybrowser engine core",
	Long: `tinybrowser drives the HTML/CSS/layout/script engine in this module
from a terminal: fetch and render a page, step through its forms and links,
and inspect the history and cookies a session has accumulated.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cookiesCmd)
	rootCmd.AddCommand(watchCmd)
}

func fatal(err error) {
	color.New(color.FgRed).Fprintln(os.Stderr, "tinybrowser:", err)
	os.Exit(1)
}

func Execute() error {
	return rootCmd.Execute()
}
