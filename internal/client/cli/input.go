package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophrecords/internal/common"
	"golang.org/x/term"
)

var (
	errPassphraseMismatch = errors.New("passphrases do not match")
	errEmptyPassphrase    = errors.New("passphrase must not be empty")
)

// readPassword reads from the terminal without echo. Tests replace it.
var readPassword = term.ReadPassword

// GetSimpleText prompts on w and returns one trimmed line from reader.
// A final line without a newline is accepted.
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readLines collects lines up to the first empty one or EOF. Only line
// endings are stripped.
func readLines(reader *bufio.Reader) []string {
	lines := []string{}
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			lines = append(lines, line)
		}
		if line == "" || err != nil {
			return lines
		}
	}
}

// GetMultiline reads free text until an empty line and joins it with '\n'.
func GetMultiline(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n(press Enter on an empty line to finish)\n"); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(readLines(reader), "\n")), nil
}

// GetAnnotations reads annotations, one per line, until an empty line.
// Lines are returned as typed; the record layer normalizes them.
func GetAnnotations(reader *bufio.Reader, w io.Writer) ([]string, error) {
	if _, err := fmt.Fprintln(w, "Enter annotations, one per line (empty line to finish)"); err != nil {
		return nil, err
	}
	return readLines(reader), nil
}

// GetPassword reads a secret from the terminal without echo. The caller
// wipes the returned slice.
func GetPassword(prompt string, w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetNewPassword asks for a passphrase twice and returns it when both
// entries match and are non-empty.
func GetNewPassword(prompt string, w io.Writer) ([]byte, error) {
	first, err := GetPassword(prompt, w)
	if err != nil {
		return nil, err
	}
	second, err := GetPassword("Repeat "+strings.ToLower(prompt), w)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	switch {
	case len(first) == 0:
		return nil, errEmptyPassphrase
	case !bytes.Equal(first, second):
		common.WipeByteArray(first)
		return nil, errPassphraseMismatch
	}
	return first, nil
}
