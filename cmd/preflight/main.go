// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/hamed0406/uptimeworker/internal/config"
)

func main() {
	envFile := ".env"
	if len(os.Args) > 1 {
		envFile = os.Args[1]
	}
	cfg, err := config.Load(envFile)
	os.Exit(report(os.Stdout, os.Stderr, cfg, err))
}

// report prints the preflight verdict and returns the process exit code.
func report(stdout, stderr io.Writer, cfg config.Config, loadErr error) int {
	fail := func(msg string) { fmt.Fprintln(stderr, "✖", msg) }
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	if loadErr != nil {
		for _, err := range multierr.Errors(loadErr) {
			fail(err.Error())
		}
		return 1
	}

	ok("ADDR=" + cfg.Addr)
	ok(fmt.Sprintf("monitor every %s, rotate every %s", cfg.MonitorInterval(), cfg.RotationInterval()))
	ok("STORE_BACKEND=" + cfg.StoreBackend)
	if cfg.ArchiveEnabled() {
		ok("archive offload to bucket " + cfg.Archive.Bucket)
	}
	for _, w := range cfg.Warnings() {
		warn(w)
	}
	if len(cfg.API.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows any origin.")
	}

	ok("preflight passed")
	return 0
}
