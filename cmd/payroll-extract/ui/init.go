// Package ui provides terminal output helpers for the payroll-extract CLI.
package ui

import (
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// Stdout and Stderr are the writers used by every helper. Tests swap them.
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	verboseFlag bool
)

// InitUI initializes the UI with color and verbose settings.
func InitUI(noColor, verbose bool) {
	verboseFlag = verbose
	if noColor {
		color.NoColor = true
	}
}

// Verbose reports whether verbose output was requested.
func Verbose() bool { return verboseFlag }

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)
