package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// DownloadDir is created under the working directory for saved attachments.
const DownloadDir = "downloads"

type App struct {
	records       Records
	pinger        Pinger
	parser        fhir.Parser
	userID        string
	checkInterval time.Duration
	Mode          Mode
	reader        *bufio.Reader
	out           io.Writer
	downloadDir   string
}

func NewApp(r Records, p Pinger, userID string, checkInterval time.Duration) *App {
	return &App{
		records:       r,
		pinger:        p,
		parser:        fhir.NewJSONParser(),
		userID:        userID,
		checkInterval: checkInterval,
		reader:        bufio.NewReader(os.Stdin),
		out:           os.Stdout,
	}
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) getStatus() string {
	s := a.userID
	if a.Mode != "" {
		if s != "" {
			s += " "
		}
		s += string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run starts the connectivity watcher and blocks in the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to GophRecords CLI (type 'help' for commands)")

	if a.pinger != nil && a.checkInterval > 0 {
		go a.StartOnlineStatusWatcher(ctx, a.checkInterval)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

// StartOnlineStatusWatcher pings the platform every interval and flips Mode
// accordingly. It returns when ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.pinger.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
