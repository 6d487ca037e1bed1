// Package color provides terminal color output for ito on top of fatih/color.
// It respects the NO_COLOR environment variable (https://no-color.org/).
package color

import (
	"fmt"
	"os"

	fcolor "github.com/fatih/color"
)

// Init disables colors when the flag is set, NO_COLOR is present, or TERM
// is dumb. fatih/color already turns colors off for non-terminals.
func Init(noColorFlag bool) {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		Disable()
	}
	if os.Getenv("TERM") == "dumb" {
		Disable()
	}
	if noColorFlag {
		Disable()
	}
}

// Enabled returns true if color output is enabled.
func Enabled() bool {
	return !fcolor.NoColor
}

// Disable turns off color output.
func Disable() {
	fcolor.NoColor = true
}

// Enable turns on color output.
func Enable() {
	fcolor.NoColor = false
}

var (
	green   = fcolor.New(fcolor.FgGreen)
	red     = fcolor.New(fcolor.FgRed)
	yellow  = fcolor.New(fcolor.FgYellow)
	cyan    = fcolor.New(fcolor.FgCyan)
	blue    = fcolor.New(fcolor.FgBlue)
	magenta = fcolor.New(fcolor.FgMagenta)
	bold    = fcolor.New(fcolor.Bold)
	faint   = fcolor.New(fcolor.Faint)
)

// Success formats a success message in green.
func Success(s string) string {
	return green.Sprint(s)
}

// Successf formats a success message with printf-style arguments.
func Successf(format string, args ...any) string {
	return green.Sprintf(format, args...)
}

// Error formats an error message in red.
func Error(s string) string {
	return red.Sprint(s)
}

// Errorf formats an error message with printf-style arguments.
func Errorf(format string, args ...any) string {
	return red.Sprintf(format, args...)
}

// Warning formats a warning message in yellow.
func Warning(s string) string {
	return yellow.Sprint(s)
}

// Warningf formats a warning message with printf-style arguments.
func Warningf(format string, args ...any) string {
	return yellow.Sprintf(format, args...)
}

// Info formats an informational message in cyan.
func Info(s string) string {
	return cyan.Sprint(s)
}

// Header formats a header in bold.
func Header(s string) string {
	return bold.Sprint(s)
}

// Dim formats secondary information.
func Dim(s string) string {
	return faint.Sprint(s)
}

// Worktree formats a worktree label in magenta.
func Worktree(s string) string {
	return magenta.Sprint(s)
}

// Entity formats an entity reference in blue.
func Entity(kind, id string) string {
	return blue.Sprint(fmt.Sprintf("%s/%s", kind, id))
}

// Severity colors a validation severity: errors red, warnings yellow.
func Severity(s string) string {
	switch s {
	case "error":
		return Error(s)
	case "warning":
		return Warning(s)
	}
	return s
}
