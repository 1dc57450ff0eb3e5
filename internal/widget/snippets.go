// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package widget

import "strings"

// Snippet kinds offered by the composer's math menu.
const (
	SnippetStyle  = "style"
	SnippetLength = "length"
)

const defaultSnippet = `$$x^2 + y^2 = r^2$$`

var snippets = map[string]map[string]string{
	SnippetStyle: {
		"expert": `$$\frac{d}{dx}\left(\int_{a}^{x} f(t)dt\right) = f(x)$$`,
		"easy":   `$2 + 2 = 4$`,
	},
	SnippetLength: {
		"short":  `$a+b=c$`,
		"medium": `$$E=mc^2$$`,
		"long":   `$$\int_{0}^{\infty} e^{-x} dx = 1$$`,
	},
}

// MathSnippet returns the TeX preset for a math menu entry, such as
// ("style", "easy") or ("length", "long"). Unknown entries get a default
// formula.
func MathSnippet(kind, value string) string {
	if s, ok := snippets[strings.ToLower(kind)][strings.ToLower(value)]; ok {
		return s
	}
	return defaultSnippet
}

// MathSnippet returns the TeX preset for a math menu entry.
func (w *Widget) MathSnippet(kind, value string) string {
	return MathSnippet(kind, value)
}
