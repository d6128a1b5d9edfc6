// Package main is the interactive vault client. It restores the saved
// session, then reads commands from stdin until exit.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/atinyakov/safedrive/internal/certgen"
	"github.com/atinyakov/safedrive/internal/client/session"
	"github.com/atinyakov/safedrive/internal/client/vault"
	"github.com/atinyakov/safedrive/internal/config"
	"github.com/atinyakov/safedrive/internal/logger"
)

var (
	version   string
	buildDate string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗")+" "+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		showVer    bool
	)
	root := &cobra.Command{
		Use:   "safedrive",
		Short: "Interactive client for a safedrive vault",
		Long: `Interactive client for a safedrive vault.

Files, notes and credentials of the signed-in account are listed on login
and kept in memory for the session. Credential passwords are fetched only
when revealed with "creds toggle <id>".

Type "help" inside the shell for the list of commands.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVer {
				fmt.Fprintf(cmd.OutOrStdout(), "safedrive client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
				return nil
			}
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "~/.safedrive/config.yaml", "path to client config")
	root.Flags().BoolVar(&showVer, "version", false, "show build version and date")
	return root
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return err
	}

	log := logger.New()
	if err := log.InitConsole(cfg.Log.Level); err != nil {
		return err
	}
	defer func() { _ = log.Log.Sync() }()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	hc, err := newHTTPClient(cfg.Server)
	if err != nil {
		return err
	}
	v := vault.New(vault.Options{
		BaseURL:    cfg.Server.BaseURL,
		HTTPClient: hc,
		Store:      store,
		Log:        log.Log,
	})

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	sh := newShell(v, bufio.NewReader(os.Stdin), os.Stdout, interactive)
	if interactive {
		sh.readSecret = terminalSecret
	}

	if s := v.Session.Restore(ctx); s.Active() {
		log.Log.Debug("session restored", zap.String("user_id", s.User.ID))
		fmt.Fprintln(os.Stdout, color.GreenString("✓")+" Signed in as "+color.YellowString(s.User.Email))
	}
	return sh.Run(ctx)
}

// newHTTPClient trusts cfg.CAFile on top of the system roots when set.
func newHTTPClient(cfg config.ClientServer) (*http.Client, error) {
	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.CAFile == "" {
		return hc, nil
	}
	roots, err := certgen.CertPool(cfg.CAFile)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12}
	hc.Transport = transport
	return hc, nil
}

func openStore(cfg *config.Client) (session.Store, error) {
	if cfg.Storage.Backend == config.BackendFile {
		return session.NewFileStore(cfg.Storage.Path), nil
	}
	prompt := func(p string) (string, error) { return terminalSecret(p) }
	return session.OpenKeyringStore(keyring.Config{
		ServiceName:              cfg.Storage.KeyringService,
		KeychainTrustApplication: true,
		KeyCtlScope:              "user",
		FileDir:                  filepath.Join(filepath.Dir(cfg.Storage.Path), "keyring"),
		KeychainPasswordFunc:     prompt,
		FilePasswordFunc:         prompt,
	})
}

// terminalSecret reads a line without echo.
func terminalSecret(prompt string) (string, error) {
	fmt.Fprintf(os.Stdout, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stdout)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
