// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package texmath

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMalformed is returned for TeX the converter cannot structure, such as
// unbalanced braces, a \frac missing an argument or nesting deeper than
// MaxNesting.
var ErrMalformed = errors.New("malformed math")

// MaxNesting bounds how deeply groups, arguments and scripts may nest in
// one expression.
const MaxNesting = 64

// =============================================================================
// SYMBOL TABLES
// =============================================================================

var greek = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ϵ",
	"varepsilon": "ε", "zeta": "ζ", "eta": "η", "theta": "θ", "iota": "ι",
	"kappa": "κ", "lambda": "λ", "mu": "μ", "nu": "ν", "xi": "ξ", "pi": "π",
	"rho": "ρ", "sigma": "σ", "tau": "τ", "upsilon": "υ", "phi": "ϕ",
	"varphi": "φ", "chi": "χ", "psi": "ψ", "omega": "ω",
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ", "Xi": "Ξ",
	"Pi": "Π", "Sigma": "Σ", "Phi": "Φ", "Psi": "Ψ", "Omega": "Ω",
}

var operators = map[string]string{
	"cdot": "⋅", "times": "×", "div": "÷", "pm": "±", "mp": "∓",
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥", "neq": "≠", "ne": "≠",
	"approx": "≈", "equiv": "≡", "sim": "∼", "propto": "∝",
	"to": "→", "rightarrow": "→", "leftarrow": "←", "Rightarrow": "⇒",
	"Leftarrow": "⇐", "leftrightarrow": "↔", "iff": "⇔", "implies": "⟹",
	"in": "∈", "notin": "∉", "subset": "⊂", "subseteq": "⊆", "cup": "∪",
	"cap": "∩", "forall": "∀", "exists": "∃", "neg": "¬", "land": "∧",
	"lor": "∨", "sum": "∑", "prod": "∏", "int": "∫", "oint": "∮",
	"partial": "∂", "nabla": "∇", "infty": "∞", "ldots": "…", "cdots": "⋯",
	"circ": "∘", "ast": "∗", "langle": "⟨", "rangle": "⟩", "mid": "∣",
	"lim": "lim", "sin": "sin", "cos": "cos", "tan": "tan", "log": "log",
	"ln": "ln", "exp": "exp", "max": "max", "min": "min",
}

var spaces = map[string]string{
	",": "0.167em", ":": "0.222em", ";": "0.278em", " ": "0.25em",
	"quad": "1em", "qquad": "2em",
}

// =============================================================================
// CONVERTER
// =============================================================================

// ToMathML converts a TeX expression into a MathML element. The TeX source
// is kept in an annotation so rendered output can be recognized later.
func ToMathML(tex string, display bool) (string, error) {
	p := &parser{src: tex}
	body, err := p.parseSeq(0)
	if err != nil {
		return "", err
	}
	if p.pos < len(p.src) {
		return "", fmt.Errorf("%w: unexpected %q at %d", ErrMalformed, p.src[p.pos], p.pos)
	}

	var b strings.Builder
	b.WriteString(`<math xmlns="http://www.w3.org/1998/Math/MathML"`)
	if display {
		b.WriteString(` display="block"`)
	}
	b.WriteString(`><semantics><mrow>`)
	b.WriteString(body)
	b.WriteString(`</mrow><annotation encoding="application/x-tex">`)
	b.WriteString(html.EscapeString(tex))
	b.WriteString(`</annotation></semantics></math>`)
	return b.String(), nil
}

type parser struct {
	src   string
	pos   int
	depth int
}

// parseSeq parses atoms until end of input or the closing brace of the
// current group (depth > 0).
func (p *parser) parseSeq(depth int) (string, error) {
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '}' {
			if depth == 0 {
				return "", fmt.Errorf("%w: unbalanced '}' at %d", ErrMalformed, p.pos)
			}
			return b.String(), nil
		}
		if c == '^' || c == '_' {
			return "", fmt.Errorf("%w: script without base at %d", ErrMalformed, p.pos)
		}

		atom, err := p.parseAtom()
		if err != nil {
			return "", err
		}
		if atom == "" {
			continue
		}
		atom, err = p.parseScripts(atom)
		if err != nil {
			return "", err
		}
		b.WriteString(atom)
	}
	if depth > 0 {
		return "", fmt.Errorf("%w: missing '}'", ErrMalformed)
	}
	return b.String(), nil
}

// parseScripts attaches any ^ and _ that follow base.
func (p *parser) parseScripts(base string) (string, error) {
	var sup, sub string
	for p.pos < len(p.src) {
		p.skipSpace()
		if p.pos >= len(p.src) {
			break
		}
		c := p.src[p.pos]
		if c != '^' && c != '_' {
			break
		}
		p.pos++
		arg, err := p.parseArg()
		if err != nil {
			return "", err
		}
		if c == '^' {
			if sup != "" {
				return "", fmt.Errorf("%w: double superscript", ErrMalformed)
			}
			sup = arg
		} else {
			if sub != "" {
				return "", fmt.Errorf("%w: double subscript", ErrMalformed)
			}
			sub = arg
		}
	}

	switch {
	case sup != "" && sub != "":
		return "<msubsup>" + base + sub + sup + "</msubsup>", nil
	case sup != "":
		return "<msup>" + base + sup + "</msup>", nil
	case sub != "":
		return "<msub>" + base + sub + "</msub>", nil
	}
	return base, nil
}

// parseArg parses one argument: a braced group or a single atom.
func (p *parser) parseArg() (string, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("%w: missing argument", ErrMalformed)
	}
	if p.src[p.pos] == '}' || p.src[p.pos] == '^' || p.src[p.pos] == '_' {
		return "", fmt.Errorf("%w: missing argument at %d", ErrMalformed, p.pos)
	}
	atom, err := p.parseAtom()
	if err != nil {
		return "", err
	}
	if atom == "" {
		return "", fmt.Errorf("%w: empty argument at %d", ErrMalformed, p.pos)
	}
	return atom, nil
}

func (p *parser) parseGroup() (string, error) {
	p.pos++ // '{'
	inner, err := p.parseSeq(1)
	if err != nil {
		return "", err
	}
	p.pos++ // '}'
	return "<mrow>" + inner + "</mrow>", nil
}

// parseAtom parses one token. Whitespace yields "".
func (p *parser) parseAtom() (string, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxNesting {
		return "", fmt.Errorf("%w: nested deeper than %d at %d", ErrMalformed, MaxNesting, p.pos)
	}

	c := p.src[p.pos]
	switch {
	case isSpace(c):
		p.pos++
		return "", nil
	case c == '{':
		return p.parseGroup()
	case c == '\\':
		return p.parseCommand()
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		return "<mn>" + p.src[start:p.pos] + "</mn>", nil
	case c == '&':
		p.pos++
		return `<mspace width="1em"></mspace>`, nil
	}

	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	if unicode.IsLetter(r) {
		return "<mi>" + html.EscapeString(string(r)) + "</mi>", nil
	}
	if r == '\'' {
		return "<mo>′</mo>", nil
	}
	return "<mo>" + html.EscapeString(string(r)) + "</mo>", nil
}

func (p *parser) parseCommand() (string, error) {
	p.pos++ // '\'
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("%w: trailing backslash", ErrMalformed)
	}

	// Single-character control symbols
	c := p.src[p.pos]
	if !isLetter(c) {
		p.pos++
		name := string(c)
		if w, ok := spaces[name]; ok {
			return `<mspace width="` + w + `"></mspace>`, nil
		}
		if name == "\\" {
			return `<mspace linebreak="newline"></mspace>`, nil
		}
		return "<mo>" + html.EscapeString(name) + "</mo>", nil
	}

	start := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]

	switch name {
	case "frac", "dfrac", "tfrac":
		num, err := p.parseArg()
		if err != nil {
			return "", err
		}
		den, err := p.parseArg()
		if err != nil {
			return "", err
		}
		return "<mfrac>" + num + den + "</mfrac>", nil

	case "sqrt":
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '[' {
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: missing ']'", ErrMalformed)
			}
			idx, err := (&parser{src: p.src[p.pos+1 : p.pos+end], depth: p.depth}).parseSeq(0)
			if err != nil {
				return "", err
			}
			p.pos += end + 1
			rad, err := p.parseArg()
			if err != nil {
				return "", err
			}
			return "<mroot>" + rad + "<mrow>" + idx + "</mrow></mroot>", nil
		}
		rad, err := p.parseArg()
		if err != nil {
			return "", err
		}
		return "<msqrt>" + rad + "</msqrt>", nil

	case "text", "mathrm", "textrm", "operatorname":
		raw, err := p.rawGroup()
		if err != nil {
			return "", err
		}
		if name == "text" || name == "textrm" {
			return "<mtext>" + html.EscapeString(raw) + "</mtext>", nil
		}
		return `<mi mathvariant="normal">` + html.EscapeString(raw) + "</mi>", nil

	case "mathbf", "mathit", "mathbb", "mathcal":
		arg, err := p.parseArg()
		if err != nil {
			return "", err
		}
		variant := map[string]string{
			"mathbf": "bold", "mathit": "italic",
			"mathbb": "double-struck", "mathcal": "script",
		}[name]
		return `<mstyle mathvariant="` + variant + `">` + arg + "</mstyle>", nil

	case "left", "right", "big", "Big", "bigg", "Bigg":
		// Sizing is left to the MathML renderer; keep the delimiter itself
		p.skipSpace()
		if p.pos >= len(p.src) {
			return "", fmt.Errorf("%w: \\%s without delimiter", ErrMalformed, name)
		}
		if p.src[p.pos] == '.' {
			p.pos++
			return "", nil
		}
		return p.parseAtom()
	}

	if g, ok := greek[name]; ok {
		return "<mi>" + g + "</mi>", nil
	}
	if op, ok := operators[name]; ok {
		return "<mo>" + op + "</mo>", nil
	}
	if w, ok := spaces[name]; ok {
		return `<mspace width="` + w + `"></mspace>`, nil
	}
	// Unknown commands are shown by name rather than failing the span
	return `<mi mathvariant="normal">` + html.EscapeString(name) + "</mi>", nil
}

// rawGroup returns the literal content of a braced group.
func (p *parser) rawGroup() (string, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return "", fmt.Errorf("%w: expected '{' at %d", ErrMalformed, p.pos)
	}
	depth := 0
	for i := p.pos; i < len(p.src); i++ {
		switch p.src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				raw := p.src[p.pos+1 : i]
				p.pos = i + 1
				return raw, nil
			}
		}
	}
	return "", fmt.Errorf("%w: missing '}'", ErrMalformed)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
