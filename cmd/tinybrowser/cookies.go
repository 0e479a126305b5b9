package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "List cookies the persisted session's jar currently holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		if len(sess.Cookies) == 0 {
			fmt.Println("no cookies yet - run 'tinybrowser get <url>' against a site that sets some")
			return nil
		}

		origins := make([]string, 0, len(sess.Cookies))
		for origin := range sess.Cookies {
			origins = append(origins, origin)
		}
		sort.Strings(origins)

		for _, origin := range origins {
			color.New(color.FgCyan, color.Bold).Println(origin)
			names := make([]string, 0, len(sess.Cookies[origin]))
			for name := range sess.Cookies[origin] {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				c := sess.Cookies[origin][name]
				flags := ""
				if c.Secure {
					flags += " secure"
				}
				if c.HttpOnly {
					flags += " httponly"
				}
				if c.SameSite != "" {
					flags += " samesite=" + string(c.SameSite)
				}
				fmt.Printf("  %s=%s%s\n", name, c.Value, flags)
			}
		}
		return nil
	},
}
