package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar wraps a progressbar instance for deterministic progress display.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar with the given total and description.
func NewProgressBar(total int, description string) *ProgressBar {
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(Stderr, "\n")
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

// NewSpinner creates an indeterminate progress indicator.
func NewSpinner(description string) *ProgressBar {
	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &ProgressBar{bar: bar}
}

// Add advances the bar by n.
func (p *ProgressBar) Add(n int) {
	_ = p.bar.Add(n)
}

// Describe replaces the bar's description.
func (p *ProgressBar) Describe(description string) {
	p.bar.Describe(description)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Message displays a simple message.
func Message(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, format, args...)
	fmt.Fprintln(Stdout)
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(Stderr, "%s %s\n", red("✗"), fmt.Sprintf(format, args...))
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, "%s %s\n", yellow("⚠"), fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	fmt.Fprintf(Stdout, "%s %s\n", cyan("ℹ"), fmt.Sprintf(format, args...))
}

// Section displays a section header.
func Section(title string) {
	fmt.Fprintf(Stdout, "\n%s\n", bold(title))
	fmt.Fprintf(Stdout, "%s\n\n", strings.Repeat("=", len([]rune(title))))
}

// Confirm asks for a yes/no answer on in. An empty answer returns def.
func Confirm(in io.Reader, message string, def bool) (bool, error) {
	choices := "y/N"
	if def {
		choices = "Y/n"
	}
	fmt.Fprintf(Stdout, "%s [%s]: ", message, choices)

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(input))
	if answer == "" {
		return def, nil
	}
	return answer == "y" || answer == "yes", nil
}
