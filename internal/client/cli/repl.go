package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Create(ctx context.Context) error
	Upload(ctx context.Context) error
	AddData(ctx context.Context) error
	Show(ctx context.Context) error
	ShowData(ctx context.Context) error
	Download(ctx context.Context) error
	Attachment(ctx context.Context) error
	Delete(ctx context.Context) error
	Search(ctx context.Context) error
	Count(ctx context.Context) error
}

const helpText = "Available commands: create, upload, adddata, show, showdata, download, attachment, delete, (s)earch, count, exit"

// runREPL reads one command per line from reader and dispatches it to a.
// Commands prompt for their own arguments through the same reader. The loop
// exits on EOF or when the user types "exit" or "quit".
//
//	create      store a FHIR resource read from a JSON file
//	upload      store a file as a DocumentReference attachment
//	adddata     store typed text as a raw data record
//	show        print a FHIR record
//	showdata    print a raw data record
//	download    save every attachment of a record
//	attachment  save one attachment in full, medium or small size
//	delete      remove a record
//	search      list records by resource type and annotations
//	count       count records by resource type and annotations
//
// Errors returned by handlers are ignored here; handlers log their own.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gr %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			printlnFn(helpText)
		case "create":
			_ = a.Create(ctx)
		case "upload":
			_ = a.Upload(ctx)
		case "adddata":
			_ = a.AddData(ctx)
		case "show":
			_ = a.Show(ctx)
		case "showdata":
			_ = a.ShowData(ctx)
		case "download":
			_ = a.Download(ctx)
		case "attachment":
			_ = a.Attachment(ctx)
		case "delete":
			_ = a.Delete(ctx)
		case "s", "search":
			_ = a.Search(ctx)
		case "count":
			_ = a.Count(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", parts[0])
		}
	}
}
