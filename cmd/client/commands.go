package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/atinyakov/safedrive/internal/client/apierr"
	"github.com/atinyakov/safedrive/internal/client/disclosure"
	"github.com/atinyakov/safedrive/internal/client/transport"
	"github.com/atinyakov/safedrive/internal/models"
)

func newShellCmd(sh *shell) *cobra.Command {
	root := &cobra.Command{
		Use:           "safedrive",
		Short:         "Vault shell",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		loginCmd(sh), registerCmd(sh), logoutCmd(sh), whoamiCmd(sh),
		filesCmd(sh), notesCmd(sh), credsCmd(sh), filterCmd(sh),
		&cobra.Command{
			Use:     "exit",
			Aliases: []string{"quit"},
			Short:   "Leave the shell",
			RunE:    func(*cobra.Command, []string) error { return errExit },
		},
	)
	return root
}

func loginCmd(sh *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in; the password is prompted for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := sh.readSecret("Password")
			if err != nil {
				return err
			}
			sh.busy("Signing in...", func() {
				_, err = sh.v.Session.Login(cmd.Context(), models.LoginRequest{Email: args[0], Password: password})
			})
			if err != nil {
				return err
			}
			sh.welcome()
			return nil
		},
	}
}

func registerCmd(sh *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "register <name> <email>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := sh.readSecret("Password")
			if err != nil {
				return err
			}
			sh.busy("Creating account...", func() {
				_, err = sh.v.Session.Register(cmd.Context(), models.RegisterRequest{Name: args[0], Email: args[1], Password: password})
			})
			if err != nil {
				return err
			}
			sh.welcome()
			return nil
		},
	}
}

func logoutCmd(sh *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh.v.Session.Logout(cmd.Context())
			sh.ok("Signed out")
			return nil
		},
	}
}

func whoamiCmd(sh *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sh.v.Session.Current()
			if !s.Active() {
				sh.hint("Not signed in. Run %s", color.YellowString("login <email>"))
				return nil
			}
			fmt.Fprintf(sh.out, "%s <%s> role=%s\n", s.User.Name, s.User.Email, s.User.Role)
			return nil
		},
	}
}

func (sh *shell) welcome() {
	snap := sh.v.Snapshot()
	sh.ok("Signed in as %s", color.YellowString(snap.Session.User.Email))
	sh.hint("%d files, %d notes, %d credentials", len(snap.Files.Items), len(snap.Notes.Items), len(snap.Credentials.Items))
}

func (sh *shell) signedIn() bool {
	if sh.v.Session.Current().Active() {
		return true
	}
	sh.hint("Not signed in. Run %s", color.YellowString("login <email>"))
	return false
}

func filesCmd(sh *shell) *cobra.Command {
	files := &cobra.Command{Use: "files", Short: "Manage uploaded files"}
	files.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List files, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !sh.signedIn() {
					return nil
				}
				sh.busy("Loading files...", func() { sh.v.Files.List(cmd.Context()) })
				if reportList[models.File](sh, sh.v.Files) {
					printFiles(sh.out, sh.v.Files.Items())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search files by name on the server",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !sh.signedIn() {
					return nil
				}
				sh.busy("Searching...", func() { sh.v.Files.Search(cmd.Context(), strings.Join(args, " ")) })
				if reportList[models.File](sh, sh.v.Files) {
					printFiles(sh.out, sh.v.Files.Items())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "upload <path>",
			Short: "Upload a local file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				var file models.File
				sh.busy("Uploading...", func() {
					file, err = sh.v.Files.Create(cmd.Context(), transport.Upload{Name: filepath.Base(args[0]), Content: f})
				})
				if err != nil {
					return err
				}
				sh.ok("Uploaded %s (%s)", color.YellowString(file.OriginalName), humanSize(file.Size))
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <id> [destination]",
			Short: "Download a file",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				dest := ""
				if len(args) == 2 {
					dest = args[1]
				} else if f, ok := sh.v.Files.Get(args[0]); ok {
					dest = filepath.Base(f.OriginalName)
				} else {
					return fmt.Errorf("unknown file %s; pass a destination or run files ls", args[0])
				}
				out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
				if err != nil {
					return err
				}
				var n int64
				sh.busy("Downloading...", func() { n, err = sh.v.Download(cmd.Context(), args[0], out) })
				if cerr := out.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					os.Remove(dest)
					return err
				}
				sh.ok("Saved %s (%s)", dest, humanSize(n))
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := sh.v.Files.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				sh.ok("Deleted file %s", args[0])
				return nil
			},
		},
	)
	return files
}

func notesCmd(sh *shell) *cobra.Command {
	notes := &cobra.Command{Use: "notes", Short: "Manage notes"}
	notes.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List notes, most recently updated first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !sh.signedIn() {
					return nil
				}
				sh.busy("Loading notes...", func() { sh.v.Notes.List(cmd.Context()) })
				if reportList[models.Note](sh, sh.v.Notes) {
					printNotes(sh.out, sh.v.Notes.Items())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search notes by title or content on the server",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !sh.signedIn() {
					return nil
				}
				sh.busy("Searching...", func() { sh.v.Notes.Search(cmd.Context(), strings.Join(args, " ")) })
				if reportList[models.Note](sh, sh.v.Notes) {
					printNotes(sh.out, sh.v.Notes.Items())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a note",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, ok := sh.v.Notes.Get(args[0])
				if !ok {
					return fmt.Errorf("unknown note %s", args[0])
				}
				fmt.Fprintf(sh.out, "%s\n%s\n", color.YellowString(n.Title), n.Content)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <title> [content]",
			Short: "Create a note; content is prompted for when omitted",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				req, err := sh.noteRequest(args)
				if err != nil {
					return err
				}
				n, err := sh.v.Notes.Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				sh.ok("Created note %s", n.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit <id> <title> [content]",
			Short: "Replace the title and content of a note",
			Args:  cobra.RangeArgs(2, 3),
			RunE: func(cmd *cobra.Command, args []string) error {
				req, err := sh.noteRequest(args[1:])
				if err != nil {
					return err
				}
				if _, err := sh.v.Notes.Update(cmd.Context(), args[0], req); err != nil {
					return err
				}
				sh.ok("Updated note %s", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a note",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := sh.v.Notes.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				sh.ok("Deleted note %s", args[0])
				return nil
			},
		},
	)
	return notes
}

func (sh *shell) noteRequest(args []string) (models.NoteRequest, error) {
	req := models.NoteRequest{Title: args[0]}
	if len(args) > 1 {
		req.Content = args[1]
		return req, nil
	}
	content, err := sh.readLine("Content")
	req.Content = content
	return req, err
}

func credsCmd(sh *shell) *cobra.Command {
	creds := &cobra.Command{Use: "creds", Short: "Manage stored credentials"}

	var url, notes string
	add := &cobra.Command{
		Use:   "add <service> <username>",
		Short: "Store a credential; the password is prompted for",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := sh.readSecret("Password")
			if err != nil {
				return err
			}
			c, err := sh.v.Credentials.Create(cmd.Context(), models.CredentialRequest{
				Service: args[0], Username: args[1], Password: password, URL: url, Notes: notes,
			})
			if err != nil {
				return err
			}
			sh.ok("Stored credential %s for %s", c.ID, color.YellowString(c.Service))
			return nil
		},
	}
	add.Flags().StringVar(&url, "url", "", "login page")
	add.Flags().StringVar(&notes, "notes", "", "free-text notes")

	var newPassword bool
	edit := &cobra.Command{
		Use:   "edit <id> <service> <username>",
		Short: "Replace a credential; the password is kept unless --password is given",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.CredentialRequest{Service: args[1], Username: args[2], URL: url, Notes: notes}
			if newPassword {
				password, err := sh.readSecret("New password")
				if err != nil {
					return err
				}
				req.Password = password
			}
			if _, err := sh.v.Credentials.Update(cmd.Context(), args[0], req); err != nil {
				return err
			}
			sh.ok("Updated credential %s", args[0])
			return nil
		},
	}
	edit.Flags().StringVar(&url, "url", "", "login page")
	edit.Flags().StringVar(&notes, "notes", "", "free-text notes")
	edit.Flags().BoolVar(&newPassword, "password", false, "prompt for a new password")

	creds.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List credentials, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !sh.signedIn() {
					return nil
				}
				sh.busy("Loading credentials...", func() { sh.v.Credentials.List(cmd.Context()) })
				if reportList[models.Credential](sh, sh.v.Credentials) {
					sh.printCredentials(sh.v.Credentials.Items())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search credentials by service or username on the server",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !sh.signedIn() {
					return nil
				}
				sh.busy("Searching...", func() { sh.v.Credentials.Search(cmd.Context(), strings.Join(args, " ")) })
				if reportList[models.Credential](sh, sh.v.Credentials) {
					sh.printCredentials(sh.v.Credentials.Items())
				}
				return nil
			},
		},
		add,
		edit,
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a credential",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := sh.v.Credentials.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				sh.ok("Deleted credential %s", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "toggle <id>",
			Short: "Reveal the password of a credential, or hide it if shown",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var (
					revealed bool
					err      error
				)
				sh.busy("Fetching password...", func() { revealed, err = sh.v.Secrets.Toggle(cmd.Context(), args[0]) })
				if err != nil {
					sh.fail("%s", revealMessage(err))
					return nil
				}
				if !revealed {
					sh.ok("Password of %s hidden", args[0])
					return nil
				}
				secret, _ := sh.v.Secrets.Revealed(args[0])
				fmt.Fprintf(sh.out, "%s %s\n", color.CyanString("password:"), secret)
				return nil
			},
		},
		&cobra.Command{
			Use:   "hide <id>",
			Short: "Hide a revealed password",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sh.v.Secrets.Hide(args[0])
				sh.ok("Password of %s hidden", args[0])
				return nil
			},
		},
	)
	return creds
}

// revealMessage is the user-facing text of a failed reveal.
func revealMessage(err error) string {
	if errors.Is(err, disclosure.ErrStale) {
		return describe(err)
	}
	return apierr.DisclosureMessage(err)
}

func filterCmd(sh *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "filter <query>",
		Short: "Show loaded items matching query, without contacting the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			fmt.Fprintln(sh.out, color.YellowString("Files"))
			printFiles(sh.out, sh.v.Files.Filter(q))
			fmt.Fprintln(sh.out, color.YellowString("Notes"))
			printNotes(sh.out, sh.v.Notes.Filter(q))
			fmt.Fprintln(sh.out, color.YellowString("Credentials"))
			sh.printCredentials(sh.v.Credentials.Filter(q))
			return nil
		},
	}
}
