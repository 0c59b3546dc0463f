package main

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// numbers formats integers with English digit grouping (1,048,576).
var numbers = message.NewPrinter(language.English)

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return numbers.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// parseAddr accepts decimal, 0x-hex, 0o-octal or 0b-binary addresses.
func parseAddr(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return v, nil
}

// hexAddr renders an address without digit grouping.
func hexAddr(a uint64) string {
	return "0x" + strconv.FormatUint(a, 16)
}

func errInvertedRange(start, end uint64) error {
	return fmt.Errorf("range [%#x, %#x) is inverted after word alignment", start, end)
}
