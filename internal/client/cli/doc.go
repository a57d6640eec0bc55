// Package cli provides the interactive GophRecords command-line client.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// Every command prompts for its own input, talks to the record layer through
// the Records interface and logs failures instead of aborting the session.
// A background watcher pings the platform and shows online or offline in the
// prompt.
package cli
