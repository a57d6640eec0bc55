package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// stubPasswords feeds answers to readPassword in order.
func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestGetSimpleText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "line", input: "  rec-1 \n", want: "rec-1"},
		{name: "last line without newline", input: "rec-2", want: "rec-2"},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetSimpleText(rdr(tt.input), "Enter record id", &out)
			if tt.wantErr {
				require.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Enter record id\n> ", out.String())
		})
	}
}

func TestGetMultiline(t *testing.T) {
	var out bytes.Buffer
	got, err := GetMultiline(rdr("{\"a\":1,\r\n\"b\":2}\n\nignored\n"), "Enter data", &out)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1,\n\"b\":2}", got)
}

func TestGetAnnotations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "stops on empty line", input: "visit=1\nward=b\n\nrest\n", want: []string{"visit=1", "ward=b"}},
		{name: "crlf", input: "visit=1\r\nward=b\r\n\r\n", want: []string{"visit=1", "ward=b"}},
		{name: "none", input: "\n", want: []string{}},
		{name: "eof without blank line", input: "a=1\nb=2", want: []string{"a=1", "b=2"}},
		{name: "spaces kept", input: " Ward B \n   \n\n", want: []string{" Ward B ", "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetAnnotations(rdr(tt.input), io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetPassword(t *testing.T) {
	stubPasswords(t, "s3cret")

	var out bytes.Buffer
	pw, err := GetPassword("Device passphrase", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Equal(t, "Device passphrase: \n", out.String())

	_, err = GetPassword("Device passphrase", &out)
	require.Error(t, err)
}

func TestGetNewPassword(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    string
		wantErr error
	}{
		{name: "match", answers: []string{"new", "new"}, want: "new"},
		{name: "mismatch", answers: []string{"new", "other"}, wantErr: errPassphraseMismatch},
		{name: "empty", answers: []string{"", ""}, wantErr: errEmptyPassphrase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubPasswords(t, tt.answers...)

			var out bytes.Buffer
			pw, err := GetNewPassword("New passphrase", &out)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(pw))
			assert.Contains(t, out.String(), "Repeat new passphrase: ")
		})
	}
}
