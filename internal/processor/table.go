package processor

import (
	"sync"

	"github.com/levinOo/go-logstats-project/internal/grok"
)

type matcherEntry struct {
	matcher   *grok.Matcher
	reporters []*Reporter
}

// MatcherTable сопоставляет скомпилированные шаблоны со списками правил.
// Одинаковый текст шаблона компилируется один раз. Записи хранятся в порядке
// добавления; список правил записи заменяется целиком, поэтому читатель
// может работать со своей копией без блокировки.
type MatcherTable struct {
	mu        sync.RWMutex
	lib       *grok.Library
	entries   []*matcherEntry
	byPattern map[string]*matcherEntry
}

// NewMatcherTable создаёт пустую таблицу, компилирующую шаблоны библиотекой lib.
func NewMatcherTable(lib *grok.Library) *MatcherTable {
	return &MatcherTable{
		lib:       lib,
		byPattern: make(map[string]*matcherEntry),
	}
}

// Add прикрепляет правило к шаблону, компилируя шаблон при первом обращении.
func (t *MatcherTable) Add(pattern string, r *Reporter) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byPattern[pattern]
	if !ok {
		m, err := t.lib.Compile(pattern)
		if err != nil {
			return err
		}
		e = &matcherEntry{matcher: m}
		t.byPattern[pattern] = e
		t.entries = append(t.entries, e)
	}

	reporters := make([]*Reporter, len(e.reporters), len(e.reporters)+1)
	copy(reporters, e.reporters)
	e.reporters = append(reporters, r)

	return nil
}

type tableView struct {
	matcher   *grok.Matcher
	reporters []*Reporter
}

func (t *MatcherTable) view() []tableView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v := make([]tableView, 0, len(t.entries))
	for _, e := range t.entries {
		if len(e.reporters) == 0 {
			continue
		}
		v = append(v, tableView{matcher: e.matcher, reporters: e.reporters})
	}
	return v
}

// Len возвращает число скомпилированных шаблонов.
func (t *MatcherTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reporters возвращает число правил, прикреплённых к шаблону.
func (t *MatcherTable) Reporters(pattern string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e, ok := t.byPattern[pattern]; ok {
		return len(e.reporters)
	}
	return 0
}
