package publisher

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/levinOo/go-logstats-project/internal/identity"
	"github.com/levinOo/go-logstats-project/internal/models"
	"github.com/levinOo/go-logstats-project/internal/repository"
	"github.com/levinOo/go-logstats-project/internal/stats"
)

type call struct {
	op string
	id string
}

type fakeDirectory struct {
	mu             sync.Mutex
	calls          []call
	names          map[identity.ID]*stats.Stats
	failRegister   map[string]error
	failUnregister map[string]error
	registered     chan identity.ID
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		names:          make(map[identity.ID]*stats.Stats),
		failRegister:   make(map[string]error),
		failUnregister: make(map[string]error),
	}
}

func (d *fakeDirectory) Register(id identity.ID, s *stats.Stats) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, call{op: "register", id: id.String()})
	if err, ok := d.failRegister[id.String()]; ok {
		delete(d.failRegister, id.String())
		return err
	}
	if _, ok := d.names[id]; ok {
		return ErrAlreadyRegistered
	}
	d.names[id] = s
	if d.registered != nil {
		d.registered <- id
	}
	return nil
}

func (d *fakeDirectory) Unregister(id identity.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, call{op: "unregister", id: id.String()})
	if err, ok := d.failUnregister[id.String()]; ok {
		delete(d.failUnregister, id.String())
		return err
	}
	if _, ok := d.names[id]; !ok {
		return ErrNotFound
	}
	delete(d.names, id)
	return nil
}

func (d *fakeDirectory) takeCalls() []call {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.calls
	d.calls = nil
	return c
}

func (d *fakeDirectory) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.names)
}

type fakeSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *fakeSink) Report(_ string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

type fakeNotifier struct {
	events []models.Event
}

func (n *fakeNotifier) Notify(e models.Event) {
	n.events = append(n.events, e)
}

func touch(t *testing.T, r *repository.BucketRegistry, name string) {
	t.Helper()
	id, err := identity.Parse(name)
	if err != nil {
		t.Fatal(err)
	}
	r.RecordSample(id, "", 4, time.Minute, time.Now(), 1)
}

func newRegistry(t *testing.T, limit int) *repository.BucketRegistry {
	t.Helper()
	r, err := repository.NewBucketRegistry(limit, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func count(calls []call, op string) int {
	n := 0
	for _, c := range calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func TestRunIsIdempotent(t *testing.T) {
	reg := newRegistry(t, 2)
	dir := newFakeDirectory()
	notifier := &fakeNotifier{}
	task := New(reg, dir, Options{Notifier: notifier})

	touch(t, reg, "Bean:id=a")
	touch(t, reg, "Bean:id=b")

	task.Run()
	if calls := dir.takeCalls(); count(calls, "register") != 2 || len(calls) != 2 {
		t.Fatalf("expected 2 registrations, got %v", calls)
	}

	// повторные обращения к существующим идентичностям не меняют счётчик
	touch(t, reg, "Bean:id=a")
	task.Run()
	task.Run()
	if calls := dir.takeCalls(); len(calls) != 0 {
		t.Fatalf("expected no directory calls, got %v", calls)
	}

	// c вытесняет b, к которой дольше всего не обращались
	touch(t, reg, "Bean:id=c")
	task.Run()
	calls := dir.takeCalls()
	if count(calls, "register") != 1 || count(calls, "unregister") != 1 || len(calls) != 2 {
		t.Fatalf("expected one register and one unregister, got %v", calls)
	}
	for _, c := range calls {
		if c.op == "register" && c.id != "Bean:id=c" {
			t.Errorf("unexpected registration %s", c.id)
		}
		if c.op == "unregister" && c.id != "Bean:id=b" {
			t.Errorf("unexpected unregistration %s", c.id)
		}
	}

	if task.Published() != 2 || dir.size() != 2 {
		t.Errorf("expected 2 published metrics, got %d/%d", task.Published(), dir.size())
	}
	if len(notifier.events) != 4 {
		t.Fatalf("expected 4 audit events, got %+v", notifier.events)
	}
	if last := notifier.events[3]; last.Action != models.ActionUnregister || last.Metric != "Bean:id=b" {
		t.Errorf("unexpected last audit event: %+v", last)
	}
}

func TestRunReregistersRecreatedBucket(t *testing.T) {
	reg := newRegistry(t, 1)
	dir := newFakeDirectory()
	task := New(reg, dir, Options{})

	touch(t, reg, "Bean:id=a")
	task.Run()
	dir.takeCalls()

	// a вытеснена b и создана заново, b так и не была опубликована
	touch(t, reg, "Bean:id=b")
	touch(t, reg, "Bean:id=a")
	task.Run()

	want := []call{{op: "unregister", id: "Bean:id=a"}, {op: "register", id: "Bean:id=a"}}
	calls := dir.takeCalls()
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: expected %v, got %v", i, want[i], calls[i])
		}
	}

	id, _ := identity.Parse("Bean:id=a")
	b, err := reg.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if dir.names[id].Generation() != b.Generation() {
		t.Error("expected directory to hold the live bucket generation")
	}
}

func TestRunRetriesFailedRegistration(t *testing.T) {
	reg := newRegistry(t, 4)
	dir := newFakeDirectory()
	sink := &fakeSink{}
	task := New(reg, dir, Options{Sink: sink})

	touch(t, reg, "Bean:id=a")
	touch(t, reg, "Bean:id=b")
	dir.failRegister["Bean:id=a"] = errors.New("connection reset")

	task.Run()
	if calls := dir.takeCalls(); count(calls, "register") != 2 {
		t.Fatalf("expected both registrations to be attempted, got %v", calls)
	}
	if task.Published() != 1 || len(sink.errs) != 1 {
		t.Fatalf("expected one failure reported, published=%d errs=%v", task.Published(), sink.errs)
	}

	// счётчик не изменился, но предыдущий проход не завершился
	task.Run()
	calls := dir.takeCalls()
	if len(calls) != 1 || calls[0] != (call{op: "register", id: "Bean:id=a"}) {
		t.Fatalf("expected retry of a, got %v", calls)
	}

	task.Run()
	if calls := dir.takeCalls(); len(calls) != 0 {
		t.Fatalf("expected no calls after successful retry, got %v", calls)
	}
}

func TestRunKeepsRecordOnUnregisterFailure(t *testing.T) {
	reg := newRegistry(t, 1)
	dir := newFakeDirectory()
	task := New(reg, dir, Options{Sink: &fakeSink{}})

	touch(t, reg, "Bean:id=a")
	task.Run()

	touch(t, reg, "Bean:id=b")
	dir.failUnregister["Bean:id=a"] = errors.New("timeout")
	task.Run()
	if task.Published() != 2 {
		t.Fatalf("expected stale record to be kept, published=%d", task.Published())
	}
	dir.takeCalls()

	task.Run()
	calls := dir.takeCalls()
	if len(calls) != 1 || calls[0] != (call{op: "unregister", id: "Bean:id=a"}) {
		t.Fatalf("expected retry of unregister, got %v", calls)
	}
	if task.Published() != 1 {
		t.Errorf("expected 1 published metric, got %d", task.Published())
	}
}

func TestRunDropsRecordWhenDirectoryForgotName(t *testing.T) {
	reg := newRegistry(t, 1)
	dir := newFakeDirectory()
	sink := &fakeSink{}
	task := New(reg, dir, Options{Sink: sink})

	touch(t, reg, "Bean:id=a")
	task.Run()

	id, _ := identity.Parse("Bean:id=a")
	delete(dir.names, id)

	touch(t, reg, "Bean:id=b")
	task.Run()

	if task.Published() != 1 {
		t.Errorf("expected forgotten record to be dropped, published=%d", task.Published())
	}
	if len(sink.errs) != 1 || !errors.Is(sink.errs[0], ErrNotFound) {
		t.Errorf("expected not found to be reported, got %v", sink.errs)
	}

	dir.takeCalls()
	task.Run()
	if calls := dir.takeCalls(); len(calls) != 0 {
		t.Errorf("expected clean pass, got %v", calls)
	}
}

func TestStopUnregistersEverything(t *testing.T) {
	reg := newRegistry(t, 8)
	dir := newFakeDirectory()
	task := New(reg, dir, Options{Sink: &fakeSink{}})

	for i := 0; i < 5; i++ {
		touch(t, reg, fmt.Sprintf("Bean:id=%d", i))
	}
	task.Run()
	dir.failUnregister["Bean:id=3"] = errors.New("transport closed")

	task.Stop()
	task.Stop()

	if calls := dir.takeCalls(); count(calls, "unregister") != 5 {
		t.Errorf("expected 5 unregistrations, got %v", calls)
	}
	if task.Published() != 0 {
		t.Errorf("expected no published metrics after stop, got %d", task.Published())
	}

	touch(t, reg, "Bean:id=new")
	task.Run()
	task.Start()
	if calls := dir.takeCalls(); len(calls) != 0 {
		t.Errorf("expected no calls after stop, got %v", calls)
	}
}

func TestStartSchedulesPasses(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	reg := newRegistry(t, 8)
	dir := newFakeDirectory()
	dir.registered = make(chan identity.ID, 8)

	task := New(reg, dir, Options{
		InitialDelay: 5 * time.Second,
		Interval:     5 * time.Second,
		Clock:        clk,
	})

	touch(t, reg, "Bean:id=a")
	task.Start()
	task.Start()

	waitForWaiters(t, clk)
	clk.Step(5 * time.Second)
	expectRegistered(t, dir.registered, "Bean:id=a")

	touch(t, reg, "Bean:id=b")
	waitForWaiters(t, clk)
	clk.Step(5 * time.Second)
	expectRegistered(t, dir.registered, "Bean:id=b")

	task.Stop()
	if dir.size() != 0 {
		t.Errorf("expected directory to be empty after stop, got %d", dir.size())
	}
}

func waitForWaiters(t *testing.T, clk *clocktesting.FakeClock) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !clk.HasWaiters() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for task timer")
		}
		time.Sleep(time.Millisecond)
	}
}

func expectRegistered(t *testing.T, ch <-chan identity.ID, want string) {
	t.Helper()
	select {
	case id := <-ch:
		if id.String() != want {
			t.Errorf("expected %s to be registered, got %s", want, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}
