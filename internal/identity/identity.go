// Package identity описывает идентичность метрики: структурированное имя
// вида "domain:key=value[,key=value...]" и шаблоны, из которых такие имена
// строятся подстановкой переменных.
package identity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalid возвращается (в обёртке), когда строка не соответствует грамматике имени.
var ErrInvalid = errors.New("invalid metric identity")

// ID описывает неизменяемую сравнимую идентичность метрики.
// Атрибуты хранятся в каноническом порядке (по ключу), поэтому два ID,
// построенные с разным порядком атрибутов, равны по ==.
// Нулевое значение ID не является корректной идентичностью.
type ID struct {
	domain string
	props  string
}

// Attribute хранит пару ключ=значение идентичности.
type Attribute struct {
	Key   string
	Value string
}

// Parse разбирает текстовое представление идентичности и проверяет его грамматику.
func Parse(s string) (ID, error) {
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return ID{}, fmt.Errorf("%w: missing domain separator in %q", ErrInvalid, s)
	}

	domain := s[:colon]
	if domain == "" {
		return ID{}, fmt.Errorf("%w: empty domain in %q", ErrInvalid, s)
	}
	if strings.ContainsAny(domain, ":,=*?\"\n") {
		return ID{}, fmt.Errorf("%w: illegal character in domain %q", ErrInvalid, domain)
	}

	rest := s[colon+1:]
	if rest == "" {
		return ID{}, fmt.Errorf("%w: no key properties in %q", ErrInvalid, s)
	}

	parts := strings.Split(rest, ",")
	attrs := make([]Attribute, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, part := range parts {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return ID{}, fmt.Errorf("%w: property %q has no '='", ErrInvalid, part)
		}

		key, value := part[:eq], part[eq+1:]
		if key == "" {
			return ID{}, fmt.Errorf("%w: empty key in %q", ErrInvalid, s)
		}
		if strings.ContainsAny(key, ":,=*?\"\n") {
			return ID{}, fmt.Errorf("%w: illegal character in key %q", ErrInvalid, key)
		}
		if strings.ContainsAny(value, ":,=*?\"\n") {
			return ID{}, fmt.Errorf("%w: illegal character in value %q", ErrInvalid, value)
		}
		if _, dup := seen[key]; dup {
			return ID{}, fmt.Errorf("%w: duplicate key %q", ErrInvalid, key)
		}
		seen[key] = struct{}{}

		attrs = append(attrs, Attribute{Key: key, Value: value})
	}

	return newID(domain, attrs), nil
}

func newID(domain string, attrs []Attribute) ID {
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })

	var sb strings.Builder
	for i, a := range attrs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(a.Key)
		sb.WriteByte('=')
		sb.WriteString(a.Value)
	}

	return ID{domain: domain, props: sb.String()}
}

// Domain возвращает домен идентичности (часть до двоеточия).
func (id ID) Domain() string {
	return id.domain
}

// Attributes возвращает атрибуты в каноническом порядке.
func (id ID) Attributes() []Attribute {
	if id.props == "" {
		return nil
	}

	parts := strings.Split(id.props, ",")
	attrs := make([]Attribute, 0, len(parts))
	for _, p := range parts {
		k, v, _ := strings.Cut(p, "=")
		attrs = append(attrs, Attribute{Key: k, Value: v})
	}
	return attrs
}

// Get возвращает значение атрибута по ключу.
func (id ID) Get(key string) (string, bool) {
	for _, a := range id.Attributes() {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// IsZero сообщает, что ID не был инициализирован.
func (id ID) IsZero() bool {
	return id.domain == ""
}

// String возвращает каноническое текстовое представление.
func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.domain + ":" + id.props
}
