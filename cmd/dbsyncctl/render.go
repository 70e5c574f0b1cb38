package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"dbsyncctl/internal/apiclient"
)

type lineKind int

const (
	lineInfo lineKind = iota
	lineOK
	lineWarn
	lineError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	lineLabelWidth = 16
	lineIndent     = "  "
)

func renderLine(label string, kind lineKind, message string, colorize bool) string {
	tag := fmt.Sprintf("[%s]", lineKindLabel(kind))
	if message != "" {
		tag += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", lineIndent, lineLabelWidth, label+":", tag)
	if colorize {
		if color := lineKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func lineKindLabel(kind lineKind) string {
	switch kind {
	case lineOK:
		return "OK"
	case lineWarn:
		return "WARN"
	case lineError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func lineKindColor(kind lineKind) string {
	switch kind {
	case lineOK:
		return ansiGreen
	case lineWarn:
		return ansiYellow
	case lineError:
		return ansiRed
	case lineInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isInteractive(reader io.Reader) bool {
	file, ok := reader.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// operatorError keeps err for errors.Is/As but prints the operator-facing
// description.
type operatorError struct {
	err error
}

func (e operatorError) Error() string { return apiclient.Describe(e.err) }

func (e operatorError) Unwrap() error { return e.err }

func describeErr(err error) error {
	if err == nil {
		return nil
	}
	var already operatorError
	if errors.As(err, &already) {
		return err
	}
	return operatorError{err: err}
}
