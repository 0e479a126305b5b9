package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the navigation history accumulated across get invocations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		if len(sess.History) == 0 {
			fmt.Println("no history yet - run 'tinybrowser get <url>' first")
			return nil
		}
		for i, e := range sess.History {
			line := fmt.Sprintf("%2d  %-4s  %s", i, e.Method, e.URL)
			if i == sess.HistoryIndex {
				color.New(color.FgGreen, color.Bold).Println(line + "  (current)")
			} else {
				fmt.Println(line)
			}
		}
		return nil
	},
}
