package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/tansive/jsbridge/internal/common/jsruntime"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var kindColors = map[jsruntime.ConsoleKind]*color.Color{
	jsruntime.ConsoleAssert:    color.New(color.FgHiRed),
	jsruntime.ConsoleError:     color.New(color.FgHiRed),
	jsruntime.ConsoleException: color.New(color.FgHiRed, color.Bold),
	jsruntime.ConsoleWarn:      color.New(color.FgYellow),
	jsruntime.ConsoleTrace:     color.New(color.FgCyan),
	jsruntime.ConsoleDebug:     color.New(color.FgHiBlack),
}

var labelColor = color.New(color.FgHiMagenta, color.Bold)

var titleCaser = cases.Title(language.English)

// consolePrinter writes console messages to a terminal stream
type consolePrinter struct {
	out    io.Writer
	color  bool
	labels bool
}

func (p *consolePrinter) print(_ any, kind jsruntime.ConsoleKind, msg []byte) {
	text := string(msg)
	if p.labels {
		label := "[" + titleCaser.String(kind.String()) + "] "
		text = indentMultiline(text, strings.Repeat(" ", len(label)))
		if p.color {
			labelColor.Fprint(p.out, label)
		} else {
			fmt.Fprint(p.out, label)
		}
	}
	if c, ok := kindColors[kind]; ok && p.color {
		c.Fprintln(p.out, text)
		return
	}
	fmt.Fprintln(p.out, text)
}

func indentMultiline(text, indent string) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= 1 {
		return text
	}
	for i := 1; i < len(lines); i++ {
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}
