// File: internal/shell/console.go
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/multisteam/internal/creds"
)

// Console is the interactive command surface: it reads operator commands from
// stdin, runs them on the loop, and doubles as the credential walker's
// prompter. One reader goroutine owns the input stream; everyone else
// consumes parsed lines from its channel.
type Console struct {
	log   *zap.Logger
	loop  *Loop
	sh    *Shell
	out   io.Writer
	lines chan string
	in    io.Reader
}

func NewConsole(logger *zap.Logger, loop *Loop, in io.Reader, out io.Writer) *Console {
	return &Console{
		log:   logger.Named("console"),
		loop:  loop,
		out:   out,
		lines: make(chan string),
		in:    in,
	}
}

// Bind attaches the shell. Done after construction because the shell needs
// the console as its prompter.
func (c *Console) Bind(sh *Shell) { c.sh = sh }

// Run reads and executes commands until the input ends, the operator quits,
// or ctx is cancelled.
func (c *Console) Run(ctx context.Context) {
	go c.readLines(ctx)

	fmt.Fprintln(c.out, `Type "help" for commands.`)
	for {
		fmt.Fprint(c.out, "> ")
		select {
		case <-ctx.Done():
			return
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			if !c.dispatch(ctx, line) {
				return
			}
		}
	}
}

func (c *Console) readLines(ctx context.Context) {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		case c.lines <- scanner.Text():
		}
	}
}

// dispatch executes one command line. It returns false when the shell should
// exit.
func (c *Console) dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		c.printHelp()
	case "list", "ls":
		c.loop.Call(func() { c.printList() })
	case "add":
		name := strings.Join(args, " ")
		c.loop.Call(func() {
			created, err := c.sh.AddProfile(name)
			if err != nil {
				fmt.Fprintln(c.out, "error:", err)
				return
			}
			fmt.Fprintf(c.out, "Created and focused %q.\n", created)
		})
	case "switch", "sw":
		if len(args) == 0 {
			fmt.Fprintln(c.out, "usage: switch <name>")
			return true
		}
		name := strings.Join(args, " ")
		c.loop.Call(func() { c.sh.SwitchTo(name) })
	case "delete", "del":
		if len(args) == 0 {
			fmt.Fprintln(c.out, "usage: delete <name>")
			return true
		}
		c.deleteProfile(strings.Join(args, " "))
	case "open":
		if len(args) == 0 {
			fmt.Fprintln(c.out, "usage: open <url>")
			return true
		}
		c.loop.Call(func() { c.reportErr(c.sh.NavigateCurrent(args[0])) })
	case "back":
		c.loop.Call(func() { c.reportErr(c.sh.BackCurrent()) })
	case "forward", "fwd":
		c.loop.Call(func() { c.reportErr(c.sh.ForwardCurrent()) })
	case "reload":
		c.loop.Call(func() { c.reportErr(c.sh.ReloadCurrent()) })
	case "panel":
		c.loop.Call(func() {
			if c.sh.ToggleAccountsPanel() {
				fmt.Fprintln(c.out, "Accounts panel shown.")
			} else {
				fmt.Fprintln(c.out, "Accounts panel hidden.")
			}
		})
	case "import":
		c.startImport(args)
	case "stopimport":
		c.loop.Call(func() { c.sh.StopImport() })
	default:
		fmt.Fprintf(c.out, "Unknown command %q. Type \"help\".\n", cmd)
	}
	return true
}

func (c *Console) deleteProfile(name string) {
	fmt.Fprintf(c.out, "Delete profile %q and its stored login? [y/N] ", name)
	answer, ok := <-c.lines
	if !ok || !strings.EqualFold(strings.TrimSpace(answer), "y") {
		fmt.Fprintln(c.out, "Cancelled.")
		return
	}
	c.loop.Call(func() { c.reportErr(c.sh.DeleteProfile(name)) })
}

func (c *Console) startImport(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "usage: import <file> [start-entry]")
		return
	}
	start := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			fmt.Fprintln(c.out, "start-entry must be a positive number")
			return
		}
		start = n
	}
	c.loop.Call(func() { c.reportErr(c.sh.StartImport(args[0], start)) })
}

func (c *Console) printList() {
	names := c.sh.Names()
	if len(names) == 0 {
		fmt.Fprintln(c.out, "No sessions. Use \"add\" to create one.")
		return
	}
	for _, name := range names {
		marker := "  "
		if name == c.sh.Focused() {
			marker = "* "
		}
		url := c.sh.State().LastURLs[name]
		fmt.Fprintf(c.out, "%s%s\t%s\n", marker, name, url)
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `Commands:
  list                 show sessions (* marks focus)
  add [name]           create a session (default name: next "Steam N")
  switch <name>        focus a session
  delete <name>        destroy a session and its stored profile
  open <url>           navigate the focused session
  back | forward       history navigation in the focused session
  reload               reload the focused session
  panel                toggle the accounts panel
  import <file> [n]    walk a login:password file, starting at entry n
  stopimport           abandon a running import
  quit                 close all sessions and exit
`)
}

func (c *Console) reportErr(err error) {
	if err != nil {
		fmt.Fprintln(c.out, "error:", err)
	}
}

// Prompt implements creds.Prompter. It runs on the loop goroutine while the
// command reader is parked in Call, so consuming from the line channel here
// is race free.
func (c *Console) Prompt(index, total int, entry creds.Pair) creds.Choice {
	fmt.Fprintf(c.out, "Import entry %d of %d: %s\n", index+1, total, entry.Masked())
	for {
		fmt.Fprint(c.out, "[c]opy to clipboard, [s]kip, [q]uit import: ")
		answer, ok := <-c.lines
		if !ok {
			return creds.ChoiceStop
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "c", "copy":
			return creds.ChoiceCopy
		case "s", "skip":
			return creds.ChoiceSkip
		case "q", "quit", "stop":
			return creds.ChoiceStop
		}
	}
}

// Notify implements creds.Prompter.
func (c *Console) Notify(msg string) {
	fmt.Fprintln(c.out, msg)
}
