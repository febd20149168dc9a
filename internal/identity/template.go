package identity

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var placeholderRe = regexp.MustCompile(`%\{([^}]*)\}`)

// ValidateVarName проверяет, что имя переменной является идентификатором:
// первая руна является буквой, '_' или '$', остальные могут быть также цифрами.
func ValidateVarName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("var is empty")
	}

	for i, r := range name {
		if i == 0 && !IsIdentStart(r) {
			return fmt.Errorf("not a valid name '%s'", name)
		}
		if i > 0 && !IsIdentPart(r) {
			return fmt.Errorf("not a valid name '%s'", name)
		}
	}

	return nil
}

// IsIdentStart сообщает, может ли руна начинать имя переменной.
func IsIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '$'
}

// IsIdentPart сообщает, может ли руна продолжать имя переменной.
func IsIdentPart(r rune) bool {
	return IsIdentStart(r) || unicode.IsDigit(r)
}

// Placeholders возвращает имена переменных, упомянутых в шаблоне как %{NAME}, в порядке появления.
func Placeholders(template string) []string {
	matches := placeholderRe.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// ValidateTemplate проверяет шаблон имени: каждая переменная шаблона должна
// быть объявлена, а результат подстановки "_VAR_" вместо объявленных
// переменных должен быть корректной идентичностью.
func ValidateTemplate(template string, vars []string) error {
	declared := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		declared[v] = struct{}{}
	}

	for _, name := range Placeholders(template) {
		if _, ok := declared[name]; !ok {
			return fmt.Errorf("template [%s] references undeclared var '%s'", template, name)
		}
	}

	expanded := template
	for _, v := range vars {
		expanded = strings.ReplaceAll(expanded, "%{"+v+"}", "_"+v+"_")
	}

	if _, err := Parse(expanded); err != nil {
		return fmt.Errorf("not a valid name [%s] (expanded: %s): %w", template, expanded, err)
	}

	return nil
}

// Instantiate подставляет значения переменных в шаблон за один проход и
// разбирает результат. Плейсхолдеры без значения остаются как есть.
// Ошибка оборачивает ErrInvalid, если получившееся имя некорректно.
func Instantiate(template string, values map[string]string) (ID, error) {
	name := placeholderRe.ReplaceAllStringFunc(template, func(ph string) string {
		if v, ok := values[ph[2:len(ph)-1]]; ok {
			return v
		}
		return ph
	})
	return Parse(name)
}
