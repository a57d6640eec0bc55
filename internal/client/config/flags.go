package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophrecords/internal/flagx"
)

var valueFlags = []string{"-a", "-id", "-t", "-d", "-dsn", "-b", "-n", "-l"}

// Command returns the first positional argument on the command line, or an
// empty string when only flags were given.
func Command() string {
	pos := flagx.Positional(os.Args[1:], append(valueFlags, flagx.ConfigFlags...))
	if len(pos) == 0 {
		return ""
	}
	return pos[0]
}

// parseFlags populates selected Config fields from command-line flags.
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, so subcommand arguments pass through untouched.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], valueFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.ClientID, "id", cfg.ClientID, "client id")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.StorageDriver, "d", cfg.StorageDriver, "secrets storage driver")
	fs.StringVar(&cfg.StorageDSN, "dsn", cfg.StorageDSN, "secrets storage DSN")
	fs.StringVar(&cfg.BlobBackend, "b", cfg.BlobBackend, "blob backend")
	fs.IntVar(&cfg.BatchConcurrency, "n", cfg.BatchConcurrency, "batch concurrency")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
