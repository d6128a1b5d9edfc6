package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/shlex"

	"github.com/atinyakov/safedrive/internal/client/apierr"
	"github.com/atinyakov/safedrive/internal/client/cache"
	"github.com/atinyakov/safedrive/internal/client/disclosure"
	"github.com/atinyakov/safedrive/internal/client/vault"
)

var errExit = errors.New("exit")

// shell runs one command tree per input line against a vault.
type shell struct {
	v           *vault.Vault
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	// readSecret prompts for a value that must not be echoed.
	readSecret func(prompt string) (string, error)
}

func newShell(v *vault.Vault, in *bufio.Reader, out io.Writer, interactive bool) *shell {
	sh := &shell{v: v, in: in, out: out, interactive: interactive}
	sh.readSecret = sh.readLine
	return sh
}

// Run reads commands until exit or end of input.
func (sh *shell) Run(ctx context.Context) error {
	for {
		sh.prompt()
		line, err := sh.in.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if sh.Exec(ctx, line) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Exec runs one input line and reports whether the shell should stop.
func (sh *shell) Exec(ctx context.Context, line string) bool {
	args, err := shlex.Split(line)
	if err != nil {
		sh.fail("Invalid command: %v", err)
		return false
	}
	if len(args) == 0 {
		return false
	}
	cmd := newShellCmd(sh)
	cmd.SetArgs(args)
	cmd.SetOut(sh.out)
	cmd.SetErr(sh.out)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errExit) {
			fmt.Fprintln(sh.out, "Bye")
			return true
		}
		sh.fail("%s", describe(err))
	}
	return false
}

func (sh *shell) prompt() {
	name := "guest"
	if s := sh.v.Session.Current(); s.Active() {
		name = s.User.Email
	}
	fmt.Fprintf(sh.out, "%s> ", color.CyanString("safedrive:"+name))
}

func (sh *shell) readLine(prompt string) (string, error) {
	fmt.Fprintf(sh.out, "%s: ", prompt)
	line, err := sh.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// busy runs fn behind a spinner when attached to a terminal.
func (sh *shell) busy(message string, fn func()) {
	if !sh.interactive {
		fn()
		return
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	defer s.Stop()
	fn()
}

func (sh *shell) ok(format string, a ...any) {
	fmt.Fprintln(sh.out, color.GreenString("✓")+" "+fmt.Sprintf(format, a...))
}

func (sh *shell) fail(format string, a ...any) {
	fmt.Fprintln(sh.out, color.RedString("✗")+" "+fmt.Sprintf(format, a...))
}

func (sh *shell) hint(format string, a ...any) {
	fmt.Fprintln(sh.out, color.CyanString("→")+" "+fmt.Sprintf(format, a...))
}

// describe renders an error for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, cache.ErrStale), errors.Is(err, disclosure.ErrStale):
		return "Session changed before the server answered; the result was discarded"
	case apierr.Is(err, apierr.KindAuth):
		var e *apierr.Error
		if errors.As(err, &e) && e.Message != "" {
			return e.Message
		}
		return "Authentication failed"
	}
	return err.Error()
}

// reportList prints the outcome of a background refresh.
func reportList[T cache.Item](sh *shell, c interface{ State() cache.State[T] }) bool {
	st := c.State()
	if st.LastError != nil {
		sh.fail("Could not refresh: %s", describe(st.LastError))
		return false
	}
	return true
}
