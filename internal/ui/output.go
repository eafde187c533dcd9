// Package ui provides colored terminal output helpers for the CLI.
package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	stepColor    = color.New(color.FgBlue, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgWhite)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	blue         = color.New(color.FgBlue)
	yellow       = color.New(color.FgYellow)
)

// center left-pads text to appear centered within width. Width is measured
// in runes so accented titles stay centered. Text wider than width is
// returned unchanged.
func center(text string, width int) string {
	n := utf8.RuneCountInString(text)
	if n >= width {
		return text
	}
	padding := (width - n) / 2
	return strings.Repeat(" ", padding) + text
}

// Header prints a banner with the given title.
func Header(title string) {
	line := strings.Repeat("═", headerWidth)
	headerColor.Println(line)
	headerColor.Println(center(title, headerWidth))
	headerColor.Println(line)
}

// Step prints a numbered progress step.
func Step(n, total int, message string) {
	stepColor.Printf("[%d/%d] ", n, total)
	fmt.Println(message)
}

// Success prints a success message.
func Success(message string) {
	successColor.Printf("✓ %s\n", message)
}

// Info prints an informational message.
func Info(message string) {
	infoColor.Printf("  %s\n", message)
}

// Warning prints a warning message.
func Warning(message string) {
	warnColor.Printf("⚠ %s\n", message)
}

// Error prints an error message.
func Error(message string) {
	errorColor.Printf("✗ %s\n", message)
}

// BlueText returns the text colored blue.
func BlueText(text string) string {
	return blue.Sprint(text)
}

// YellowText returns the text colored yellow.
func YellowText(text string) string {
	return yellow.Sprint(text)
}
