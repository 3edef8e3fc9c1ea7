// pre_processor.go implements the WGSL pre-processor that runs before compilation. It handles a
// small C-like directive set on lines starting with '#':
//
//	#include "name"      inserts a registered include (recursively processed)
//	#define NAME [value] defines a macro; NAME is replaced by value in following code
//	#undef NAME          removes a macro
//	#ifdef / #ifndef NAME, #else, #endif  conditional blocks, nestable
//
// Macro values are substituted on whole identifiers only. Directives never reach naga.
package shader

import (
	"fmt"
	"strings"
	"unicode"
)

const maxIncludeDepth = 16

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	includes map[string]string
}

// PreProcessor resolves include and define directives in WGSL source.
type PreProcessor interface {
	// Process resolves every directive of source.
	//
	// Parameters:
	//   - source: the raw WGSL text
	//   - defines: initial macros, as if #define'd before the first line
	//
	// Returns:
	//   - string: the processed WGSL
	//   - error: an error for unknown includes, unbalanced conditionals or malformed directives
	Process(source string, defines map[string]string) (string, error)

	// RegisterInclude makes source available to `#include "name"`.
	//
	// Parameters:
	//   - name: the include name
	//   - source: the included WGSL text
	RegisterInclude(name, source string)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with no includes registered.
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{includes: make(map[string]string)}
}

func (p *preProcessor) RegisterInclude(name, source string) {
	p.includes[name] = source
}

func (p *preProcessor) Process(source string, defines map[string]string) (string, error) {
	macros := make(map[string]string, len(defines))
	for k, v := range defines {
		macros[k] = v
	}
	var out strings.Builder
	if err := p.process(&out, source, macros, 0, nil); err != nil {
		return "", err
	}
	return out.String(), nil
}

// condFrame is one open #ifdef/#ifndef block.
type condFrame struct {
	parentActive bool
	taken        bool
	seenElse     bool
	line         int
}

func (p *preProcessor) process(out *strings.Builder, source string, macros map[string]string, depth int, chain []string) error {
	var stack []condFrame
	active := true

	for i, raw := range strings.Split(source, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		if !strings.HasPrefix(line, "#") {
			if active {
				out.WriteString(substitute(raw, macros))
				out.WriteByte('\n')
			}
			continue
		}

		directive, arg, _ := strings.Cut(strings.TrimSpace(line[1:]), " ")
		arg = strings.TrimSpace(arg)

		switch directive {
		case "ifdef", "ifndef":
			if arg == "" {
				return fmt.Errorf("line %d: #%s needs a macro name", lineNo, directive)
			}
			_, defined := macros[arg]
			cond := defined == (directive == "ifdef")
			stack = append(stack, condFrame{parentActive: active, taken: cond, line: lineNo})
			active = active && cond

		case "else":
			if len(stack) == 0 {
				return fmt.Errorf("line %d: #else without #ifdef", lineNo)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return fmt.Errorf("line %d: duplicate #else", lineNo)
			}
			top.seenElse = true
			active = top.parentActive && !top.taken

		case "endif":
			if len(stack) == 0 {
				return fmt.Errorf("line %d: #endif without #ifdef", lineNo)
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]

		case "define":
			if !active {
				continue
			}
			name, value, _ := strings.Cut(arg, " ")
			if !isIdentifier(name) {
				return fmt.Errorf("line %d: invalid macro name %q", lineNo, name)
			}
			macros[name] = strings.TrimSpace(value)

		case "undef":
			if active {
				delete(macros, arg)
			}

		case "include":
			if !active {
				continue
			}
			name := strings.Trim(arg, `"<>`)
			src, ok := p.includes[name]
			if !ok {
				return fmt.Errorf("line %d: unknown include %q", lineNo, name)
			}
			for _, c := range chain {
				if c == name {
					return fmt.Errorf("line %d: include cycle through %q", lineNo, name)
				}
			}
			if depth+1 > maxIncludeDepth {
				return fmt.Errorf("line %d: includes nested deeper than %d", lineNo, maxIncludeDepth)
			}
			if err := p.process(out, src, macros, depth+1, append(chain, name)); err != nil {
				return fmt.Errorf("include %q: %w", name, err)
			}

		default:
			return fmt.Errorf("line %d: unknown directive #%s", lineNo, directive)
		}
	}

	if len(stack) > 0 {
		return fmt.Errorf("line %d: unterminated conditional block", stack[len(stack)-1].line)
	}
	return nil
}

// substitute replaces whole-identifier occurrences of macros in line. Line comments are left alone.
func substitute(line string, macros map[string]string) string {
	if len(macros) == 0 {
		return line
	}
	code, comment := line, ""
	if idx := strings.Index(line, "//"); idx >= 0 {
		code, comment = line[:idx], line[idx:]
	}

	var b strings.Builder
	runes := []rune(code)
	for i := 0; i < len(runes); {
		if !isIdentStart(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && isIdentPart(runes[j]) {
			j++
		}
		word := string(runes[i:j])
		if v, ok := macros[word]; ok && v != "" {
			b.WriteString(v)
		} else {
			b.WriteString(word)
		}
		i = j
	}
	return b.String() + comment
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if (i == 0 && !isIdentStart(r)) || !isIdentPart(r) {
			return false
		}
	}
	return true
}
