// Package input reads the text that should be read aloud.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

var readClipboard = clipboard.ReadAll

// Source selects where the text is read from. Exactly one source must be set.
type Source struct {
	// File is the path of the input file. "-" reads from Stdin.
	File      string
	Stdin     bool
	Clipboard bool
	Text      string
}

// Read returns the text of the selected source.
func Read(src Source, stdin io.Reader) (string, error) {
	selected := 0
	for _, isSet := range []bool{src.File != "", src.Stdin, src.Clipboard, src.Text != ""} {
		if isSet {
			selected++
		}
	}

	switch {
	case selected == 0:
		return "", errors.New("no input specified: provide a file, text, or read from stdin or clipboard")
	case selected > 1:
		return "", errors.New("more than one input specified: provide either a file, text, stdin or clipboard")
	}

	txt, err := read(src, stdin)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(txt) == "" {
		return "", errors.New("input text is empty")
	}

	return txt, nil
}

func read(src Source, stdin io.Reader) (string, error) {
	switch {
	case src.Text != "":
		return src.Text, nil
	case src.Clipboard:
		txt, err := readClipboard()
		if err != nil {
			return "", fmt.Errorf("read clipboard: %w", err)
		}

		return txt, nil
	case src.Stdin || src.File == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}

		return string(b), nil
	default:
		b, err := os.ReadFile(src.File)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}

		return string(b), nil
	}
}
