package grok

import (
	"regexp"
	"strings"
)

// Fields содержит дерево полей результата сопоставления. Листья являются строками,
// внутренние узлы вложенными Fields.
type Fields map[string]any

// Lookup проходит по дереву по заданному пути. Возвращает пустую строку и
// false, если какой-либо сегмент отсутствует или путь не заканчивается строкой.
func (f Fields) Lookup(path []string) (string, bool) {
	var node any = f
	for _, seg := range path {
		m, ok := node.(Fields)
		if !ok {
			return "", false
		}
		node, ok = m[seg]
		if !ok {
			return "", false
		}
	}

	s, ok := node.(string)
	return s, ok
}

// Matcher представляет скомпилированный шаблон. Безопасен для конкурентного использования.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
	fields  map[string]string
}

// Pattern возвращает исходный текст шаблона.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Match сопоставляет строку с шаблоном. При отсутствии совпадения возвращает nil и false.
// Группы, не участвовавшие в совпадении, в дерево не попадают.
func (m *Matcher) Match(line string) (Fields, bool) {
	loc := m.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil, false
	}

	tree := make(Fields)
	for i, group := range m.re.SubexpNames() {
		field, ok := m.fields[group]
		if !ok || loc[2*i] < 0 {
			continue
		}
		insert(tree, strings.Split(field, "."), line[loc[2*i]:loc[2*i+1]])
	}

	return tree, true
}

func insert(tree Fields, path []string, value string) {
	node := tree
	for _, seg := range path[:len(path)-1] {
		child, ok := node[seg].(Fields)
		if !ok {
			if _, leaf := node[seg]; leaf {
				return
			}
			child = make(Fields)
			node[seg] = child
		}
		node = child
	}

	leaf := path[len(path)-1]
	if _, exists := node[leaf]; !exists {
		node[leaf] = value
	}
}
