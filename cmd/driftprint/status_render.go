package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(statusKindColor(kind), base, colorize)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) *color.Color {
	switch kind {
	case statusOK:
		return color.New(color.FgGreen)
	case statusWarn:
		return color.New(color.FgYellow)
	case statusError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	header := color.New(color.FgBlue, color.Bold)
	return []string{paint(header, line, colorize), paint(header, rule, colorize)}
}

// paint applies c only when colorize is set, independent of the global
// color.NoColor detection, which looks at os.Stdout rather than the writer in use.
func paint(c *color.Color, s string, colorize bool) string {
	if !colorize {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
