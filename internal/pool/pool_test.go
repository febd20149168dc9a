package pool

import (
	"testing"

	"github.com/levinOo/go-logstats-project/internal/models"
)

// TestEventPoolGetPut проверяет базовую работу Get/Put для Event
func TestEventPoolGetPut(t *testing.T) {
	p := New[*models.Event](func() *models.Event {
		return &models.Event{}
	})

	e := p.Get()
	if e == nil {
		t.Fatal("expected non-nil Event from pool")
	}

	e.TS = 100
	e.Action = models.ActionRegister
	e.Metric = "Bean:id=1"
	e.Generation = 7

	p.Put(e)

	e2 := p.Get()
	if e2 == nil {
		t.Fatal("expected non-nil Event from pool after Put")
	}
	if e2 != e {
		t.Error("expected pooled object to be reused")
	}
	if *e2 != (models.Event{}) {
		t.Errorf("expected event to be reset, got: %+v", *e2)
	}
}

// TestEventPoolEmptyPool проверяет поведение при пустом пуле
func TestEventPoolEmptyPool(t *testing.T) {
	p := New[*models.Event](func() *models.Event {
		return &models.Event{}
	})

	e1 := p.Get()
	e2 := p.Get()

	if e1 == nil || e2 == nil {
		t.Fatal("expected non-nil events from factory")
	}
	if e1 == e2 {
		t.Error("expected different objects from factory")
	}
}

type scratch map[string]string

func (s scratch) Reset() {
	clear(s)
}

// TestMapPoolClearsOnPut проверяет переиспользование map-типа
func TestMapPoolClearsOnPut(t *testing.T) {
	p := New[scratch](func() scratch { return make(scratch) })

	m := p.Get()
	m["X"] = "X3"
	p.Put(m)

	m2 := p.Get()
	if len(m2) != 0 {
		t.Errorf("expected empty map, got %v", m2)
	}
}

// TestNilFactory проверяет возврат нулевого значения без фабрики
func TestNilFactory(t *testing.T) {
	p := &Pool[*models.Event]{}
	if p.Get() != nil {
		t.Error("expected nil without factory")
	}
}
