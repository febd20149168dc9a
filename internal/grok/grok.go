// Package grok реализует сопоставление строк лога с шаблонами вида
// "%{WORD:NAME}: %{NUMBER:TIME}ms" поверх стандартного regexp.
//
// Библиотека хранит именованные определения шаблонов; ссылки %{NAME}
// раскрываются рекурсивно, а ссылки %{NAME:field} дополнительно создают
// именованное поле в результате сопоставления. Поля с точкой в имени
// ("req.time") образуют вложенное дерево.
package grok

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
)

// DefaultPatterns содержит базовые определения, совместимые с синтаксисом RE2.
const DefaultPatterns = `
USERNAME [a-zA-Z0-9._-]+
USER %{USERNAME}
INT (?:[+-]?(?:[0-9]+))
BASE10NUM [+-]?(?:[0-9]+(?:\.[0-9]+)?|\.[0-9]+)
NUMBER (?:%{BASE10NUM})
BASE16NUM [+-]?(?:0x)?(?:[0-9A-Fa-f]+)
POSINT \b(?:[1-9][0-9]*)\b
NONNEGINT \b(?:[0-9]+)\b
WORD \b\w+\b
NOTSPACE \S+
SPACE \s*
DATA .*?
GREEDYDATA .*
IPV4 (?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)
IP (?:%{IPV4})
`

const maxExpandDepth = 64

var referenceRe = regexp.MustCompile(`%\{(\w+)(?::([\w.$-]+))?\}`)

// CompileError описывает ошибку компиляции шаблона.
type CompileError struct {
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile pattern %q: %v", e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Library хранит набор именованных определений шаблонов. Безопасна для конкурентного использования.
type Library struct {
	mu          sync.RWMutex
	definitions map[string]string
}

// NewLibrary создаёт библиотеку с определениями из DefaultPatterns.
func NewLibrary() *Library {
	l := NewEmptyLibrary()
	if err := l.AddPatterns(strings.NewReader(DefaultPatterns)); err != nil {
		return NewEmptyLibrary()
	}
	return l
}

// NewEmptyLibrary создаёт библиотеку без определений.
func NewEmptyLibrary() *Library {
	return &Library{definitions: make(map[string]string)}
}

// AddPatterns читает определения построчно в формате "NAME regex".
// Пустые строки и строки, начинающиеся с '#', пропускаются.
func (l *Library) AddPatterns(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	l.mu.Lock()
	defer l.mu.Unlock()

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, def, ok := strings.Cut(line, " ")
		def = strings.TrimSpace(def)
		if !ok || def == "" {
			return fmt.Errorf("line %d: pattern definition must be \"NAME regex\": %q", lineNo, line)
		}

		l.definitions[name] = def
	}

	return scanner.Err()
}

// AddPatternsFromFile загружает определения из файла.
func (l *Library) AddPatternsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pattern file: %w", err)
	}
	defer f.Close()

	if err := l.AddPatterns(f); err != nil {
		return fmt.Errorf("read pattern file %s: %w", path, err)
	}
	return nil
}

// Definition возвращает определение по имени.
func (l *Library) Definition(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.definitions[name]
	return def, ok
}

// Compile раскрывает ссылки в шаблоне и компилирует его.
// Шаблон интерпретируется как регулярное выражение; для текстовых шаблонов
// используйте SimpleTemplateToRegex перед вызовом.
func (l *Library) Compile(pattern string) (*Matcher, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c := &compiler{defs: l.definitions, fields: make(map[string]string)}
	expanded, err := c.expand(pattern, nil)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}

	re, err := regexp.Compile(expanded)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}

	return &Matcher{pattern: pattern, re: re, fields: c.fields}, nil
}

type compiler struct {
	defs   map[string]string
	fields map[string]string
	next   int
}

func (c *compiler) expand(pattern string, stack []string) (string, error) {
	if len(stack) > maxExpandDepth {
		return "", fmt.Errorf("pattern nesting exceeds %d levels", maxExpandDepth)
	}

	var expandErr error
	out := referenceRe.ReplaceAllStringFunc(pattern, func(ref string) string {
		if expandErr != nil {
			return ""
		}

		sub := referenceRe.FindStringSubmatch(ref)
		name, field := sub[1], sub[2]

		for _, s := range stack {
			if s == name {
				expandErr = fmt.Errorf("recursive pattern reference %%{%s}", name)
				return ""
			}
		}

		def, ok := c.defs[name]
		if !ok {
			expandErr = fmt.Errorf("unknown pattern %%{%s}", name)
			return ""
		}

		body, err := c.expand(def, append(stack, name))
		if err != nil {
			expandErr = err
			return ""
		}

		if field == "" {
			return "(?:" + body + ")"
		}

		group := fmt.Sprintf("f%d", c.next)
		c.next++
		c.fields[group] = field
		return "(?P<" + group + ">" + body + ")"
	})

	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

// SimpleTemplateToRegex превращает текстовый шаблон в регулярное выражение:
// литеральный текст экранируется, ссылки %{...} сохраняются как есть.
func SimpleTemplateToRegex(template string) string {
	var sb strings.Builder

	last := 0
	for _, loc := range referenceRe.FindAllStringIndex(template, -1) {
		sb.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		sb.WriteString(template[loc[0]:loc[1]])
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(template[last:]))

	return sb.String()
}
