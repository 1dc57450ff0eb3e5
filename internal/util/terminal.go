// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// StripControl removes escape sequences and every control character other
// than newline and tab, so message text cannot drive the terminal it is
// printed to.
func StripControl(s string) string {
	if !strings.ContainsFunc(s, isStripped) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isStripped(r) {
			return -1
		}
		return r
	}, ansi.Strip(s))
}

func isStripped(r rune) bool {
	return r != '\n' && r != '\t' && unicode.IsControl(r)
}
