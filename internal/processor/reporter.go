package processor

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/levinOo/go-logstats-project/internal/grok"
	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/rules"
)

// Reporter описывает неизменяемое правило, связывающее поля совпадения с одной
// идентичностью метрики и её значением.
type Reporter struct {
	template    string
	constants   map[string]string
	paths       map[string][]string
	valueVar    string
	description string
	bufferSize  int
	timeDepth   time.Duration
}

// NewReporter проверяет объявление и строит правило. Выражение переменной,
// начинающееся с буквы, '_' или '$', считается путём к полю через точку;
// выражение в кавычках становится константой без кавычек; остальные выражения
// становятся константой как есть.
func NewReporter(vars []rules.Var, template, valueVar, description string, bufferSize int, timeDepth time.Duration) (*Reporter, error) {
	r := &Reporter{
		template:    template,
		constants:   make(map[string]string),
		paths:       make(map[string][]string),
		valueVar:    valueVar,
		description: description,
		bufferSize:  bufferSize,
		timeDepth:   timeDepth,
	}

	names := make([]string, 0, len(vars))
	for _, v := range vars {
		name := strings.TrimSpace(v.Name)
		if err := identity.ValidateVarName(name); err != nil {
			return nil, err
		}

		expr := strings.TrimSpace(v.Expr)
		if expr == "" {
			return nil, fmt.Errorf("expression is missing for var '%s'", name)
		}

		if _, ok := r.constants[name]; ok {
			return nil, fmt.Errorf("duplicate var '%s'", name)
		}
		if _, ok := r.paths[name]; ok {
			return nil, fmt.Errorf("duplicate var '%s'", name)
		}

		if first, _ := utf8.DecodeRuneInString(expr); identity.IsIdentStart(first) {
			r.paths[name] = strings.Split(expr, ".")
		} else {
			r.constants[name] = unquote(expr)
		}
		names = append(names, name)
	}

	if _, ok := r.paths[valueVar]; !ok {
		if _, ok := r.constants[valueVar]; !ok {
			return nil, fmt.Errorf("report var '%s' is not declared", valueVar)
		}
	}

	if err := identity.ValidateTemplate(template, names); err != nil {
		return nil, err
	}

	return r, nil
}

func unquote(expr string) string {
	if len(expr) >= 2 {
		if q := expr[0]; (q == '\'' || q == '"') && expr[len(expr)-1] == q {
			return expr[1 : len(expr)-1]
		}
	}
	return expr
}

// resolve заполняет vars значениями переменных для дерева полей.
// Отсутствующий путь даёт пустую строку.
func (r *Reporter) resolve(fields grok.Fields, vars varState) {
	for k, v := range r.constants {
		vars[k] = v
	}
	for k, path := range r.paths {
		val, _ := fields.Lookup(path)
		vars[k] = val
	}
}

// Template возвращает шаблон имени идентичности.
func (r *Reporter) Template() string { return r.template }

// ValueVar возвращает имя переменной со значением метрики.
func (r *Reporter) ValueVar() string { return r.valueVar }

// Description возвращает описание метрики.
func (r *Reporter) Description() string { return r.description }

// BufferSize возвращает размер скользящего окна.
func (r *Reporter) BufferSize() int { return r.bufferSize }

// TimeDepth возвращает глубину скользящего окна.
func (r *Reporter) TimeDepth() time.Duration { return r.timeDepth }

// varState хранит значения переменных для одной строки.
type varState map[string]string

func (s varState) Reset() {
	clear(s)
}
