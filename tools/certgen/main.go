// Command certgen creates a private CA and a server certificate signed by it
// for serving the vault API over HTTPS. Point the server at server.crt and
// server.key, and the client's server.ca_file at ca.crt.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/safedrive/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	days := flag.Int("days", 365, "server certificate validity in days")
	reuse := flag.Bool("reuse-ca", false, "sign with the existing ca.crt/ca.key in -dir")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ","), time.Duration(*days)*24*time.Hour, *reuse); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Certificates generated into %s\n", *dir)
}

func run(dir string, hosts []string, validity time.Duration, reuse bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	caCert, caKey := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")

	var (
		ca  *certgen.Authority
		err error
	)
	if reuse {
		ca, err = certgen.LoadAuthority(caCert, caKey)
	} else {
		var pair certgen.Pair
		ca, pair, err = certgen.NewAuthority("safedrive CA", 10*365*24*time.Hour)
		if err == nil {
			err = pair.Write(caCert, caKey)
		}
	}
	if err != nil {
		return err
	}

	names := hosts[:0]
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	server, err := ca.IssueServer(names, validity)
	if err != nil {
		return err
	}
	return server.Write(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
}
