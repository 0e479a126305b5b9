package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dpotapov/tinybrowser/internal/cookiejar"
	"github.com/dpotapov/tinybrowser/internal/dom"
	"github.com/dpotapov/tinybrowser/internal/httpclient"
	"github.com/dpotapov/tinybrowser/internal/layout"
	"github.com/dpotapov/tinybrowser/internal/tab"
	"github.com/dpotapov/tinybrowser/internal/weburl"
)

var noInteractive bool

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Navigate to a URL, render it, and (on a terminal) drive it interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "render and exit instead of dropping into the action menu")
}

func runGet(cmd *cobra.Command, args []string) error {
	u, err := weburl.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	sess, err := loadSession()
	if err != nil {
		return err
	}

	jar := cookiejar.New()
	jar.Restore(sess.Cookies)
	client := httpclient.New(jar)
	client.Logger = logger

	tb := tab.New(client, monospaceFactory, logger)
	tb.History = restoreHistory(sess.History)
	tb.HistoryIndex = sess.HistoryIndex

	tb.Navigate(u, "GET", "")
	interactive := !noInteractive && term.IsTerminal(int(os.Stdin.Fd()))
	if tb.CertError && interactive {
		confirmPastCertError(client, tb, u)
	}
	printStatus(tb)
	printDump(tb)

	if interactive {
		if err := interactiveLoop(tb); err != nil {
			return err
		}
	}

	sess.History = snapshotHistory(tb.History)
	sess.HistoryIndex = tb.HistoryIndex
	sess.Cookies = jar.Entries()
	return saveSession(sess)
}

// confirmPastCertError asks the user whether to proceed despite a failed
// certificate check, the CLI's substitute for a GUI's "advanced / proceed
// anyway" click-through. A "yes" sets the one flag that bypasses
// verification (httpclient.Client.InsecureSkipVerify) and re-navigates.
func confirmPastCertError(client *httpclient.Client, tb *tab.Tab, u *weburl.URL) {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Certificate error for %s - proceed anyway", u.Host),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		return // anything but an explicit "y" leaves the cert error in place
	}
	client.InsecureSkipVerify = true
	tb.Navigate(u, "GET", "")
}

func printStatus(tb *tab.Tab) {
	switch {
	case tb.CertError:
		color.New(color.FgRed, color.Bold).Println("✗ certificate error:", tb.Status)
	case tb.CurrentURL() != nil && tb.CurrentURL().Scheme == weburl.HTTPS:
		color.New(color.FgGreen).Print("🔒 ")
		fmt.Println(tb.Status, tb.CurrentURL().String())
	default:
		fmt.Println(tb.Status, safeURL(tb))
	}
}

func safeURL(tb *tab.Tab) string {
	if tb.CurrentURL() == nil {
		return ""
	}
	return tb.CurrentURL().String()
}

func printDump(tb *tab.Tab) {
	fmt.Print(dump(tb.Display, tb.ScrollY, layout.DefaultHeight))
}

// hitBoxOption is one selectable action in the interactive menu: either a
// widget hit-box (click it) or a fixed navigation/quit action.
type hitBoxOption struct {
	label string
	run   func(tb *tab.Tab) error
}

func describeHitBox(n *dom.Node) string {
	switch {
	case n.Tag == "input":
		name, _ := n.GetAttribute("name")
		typ, _ := n.GetAttribute("type")
		if typ == "" {
			typ = "text"
		}
		return fmt.Sprintf("input[name=%s type=%s]", name, typ)
	case n.Tag == "button":
		return "button"
	case n.Tag == "a":
		href, _ := n.GetAttribute("href")
		return fmt.Sprintf("a[href=%s]", href)
	default:
		return n.Tag
	}
}

func interactiveLoop(tb *tab.Tab) error {
	for {
		var opts []hitBoxOption
		for _, hb := range tb.HitBoxes {
			hb := hb
			opts = append(opts, hitBoxOption{
				label: describeHitBox(hb.Node),
				run: func(tb *tab.Tab) error {
					return clickAndFill(tb, hb.Node, hb.Rect.X+1, hb.Rect.Y+1-tb.ScrollY)
				},
			})
		}
		if tb.Focus != nil {
			opts = append(opts, hitBoxOption{
				label: "submit focused form (Enter)",
				run:   func(tb *tab.Tab) error { tb.KeyEnter(); return nil },
			})
		}
		opts = append(opts,
			hitBoxOption{label: "scroll down", run: func(tb *tab.Tab) error { tb.Scroll(layout.DefaultHeight / 2); return nil }},
			hitBoxOption{label: "scroll up", run: func(tb *tab.Tab) error { tb.Scroll(-layout.DefaultHeight / 2); return nil }},
			hitBoxOption{label: "back", run: func(tb *tab.Tab) error { tb.Back(); return nil }},
			hitBoxOption{label: "forward", run: func(tb *tab.Tab) error { tb.Forward(); return nil }},
			hitBoxOption{label: "reload", run: func(tb *tab.Tab) error { tb.Reload(); return nil }},
			hitBoxOption{label: "quit", run: nil},
		)

		labels := make([]string, len(opts))
		for i, o := range opts {
			labels[i] = o.label
		}
		prompt := promptui.Select{Label: "action", Items: labels}
		i, _, err := prompt.Run()
		if err != nil {
			return nil // ^C / EOF ends the session rather than erroring
		}
		chosen := opts[i]
		if chosen.run == nil {
			return nil
		}
		if err := chosen.run(tb); err != nil {
			return err
		}
		tb.Tick()
		printStatus(tb)
		printDump(tb)
	}
}

// clickAndFill clicks a widget's hit-box, then, if the click focused a text
// input, prompts for a value to type into it - masked via term.ReadPassword
// for type=password, plain via promptui.Prompt otherwise.
func clickAndFill(tb *tab.Tab, node *dom.Node, x, y float64) error {
	tb.Click(x, y)
	if tb.Focus != node || node.Tag != "input" {
		return nil
	}
	typ, _ := node.GetAttribute("type")
	if typ == "password" {
		fmt.Print("value (hidden): ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		tb.Type(string(pw))
		return nil
	}
	p := promptui.Prompt{Label: "value"}
	v, err := p.Run()
	if err != nil {
		return nil // a cancelled prompt just leaves the field empty
	}
	tb.Type(v)
	return nil
}
