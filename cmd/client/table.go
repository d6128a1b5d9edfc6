package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/atinyakov/safedrive/internal/models"
)

const (
	dateLayout = "2006-01-02 15:04"
	mask       = "••••••••"
)

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func printFiles(w io.Writer, files []models.File) {
	if len(files) == 0 {
		fmt.Fprintln(w, "  (no files)")
		return
	}
	tw := newTable(w, "ID", "NAME", "TYPE", "SIZE", "UPLOADED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.OriginalName, f.ContentType, humanSize(f.Size), f.UploadDate.Local().Format(dateLayout))
	}
	tw.Flush()
}

func printNotes(w io.Writer, notes []models.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "  (no notes)")
		return
	}
	tw := newTable(w, "ID", "TITLE", "PREVIEW", "UPDATED")
	for _, n := range notes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, n.Title, preview(n.Content, 40), n.UpdatedDate.Local().Format(dateLayout))
	}
	tw.Flush()
}

// printCredentials masks every password that is not currently revealed.
func (sh *shell) printCredentials(creds []models.Credential) {
	if len(creds) == 0 {
		fmt.Fprintln(sh.out, "  (no credentials)")
		return
	}
	revealed := sh.v.Snapshot().Revealed
	tw := newTable(sh.out, "ID", "SERVICE", "USERNAME", "PASSWORD", "URL")
	for _, c := range creds {
		password, ok := revealed[c.ID]
		if !ok {
			password = mask
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Service, c.Username, password, c.URL)
	}
	tw.Flush()
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
