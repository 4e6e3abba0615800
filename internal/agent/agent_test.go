package agent

import (
	"errors"
	"io"
	"log"
	"testing"

	"go-mas-sim/internal/core"
	"go-mas-sim/internal/scheduler"
)

const (
	kindPing core.EffectKind = iota + 1
	kindNoop
)

type stubBehavior struct {
	effects  *EffectTable
	inits    int
	applied  []core.Time
	received []core.Message
	reply    bool
	initAt   core.Time
}

func newStub() *stubBehavior {
	b := &stubBehavior{effects: NewEffectTable(), initAt: 5}
	return b
}

func (b *stubBehavior) Init(a *Agent[core.Effect]) error {
	b.inits++
	b.effects.Register(kindPing, "ping", func(e core.Effect) error {
		b.applied = append(b.applied, a.Now())
		if e.Props.Has("announce") {
			a.Send(core.NewMessage("", core.Broadcast, "pong"))
		}
		return nil
	})
	e := core.NewEffect(b.initAt, kindPing, a.Name())
	return a.Scheduler().Add(e)
}

func (b *stubBehavior) Dynamic(a *Agent[core.Effect]) error {
	for {
		e, ok := a.PopDue()
		if !ok {
			return nil
		}
		if err := b.effects.Apply(e); err != nil {
			return err
		}
	}
}

func (b *stubBehavior) HandleMessage(a *Agent[core.Effect], msg core.Message) error {
	b.received = append(b.received, msg)
	if b.reply {
		a.Send(core.NewMessage("", msg.Sender, "ack"))
	}
	return nil
}

func quiet() Option { return WithLogger(log.New(io.Discard, "", 0)) }

func started(t *testing.T, b *stubBehavior) *Agent[core.Effect] {
	t.Helper()
	a := New[core.Effect]("a1", b, quiet())
	if _, err := a.Init(0); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := a.InternalTransition(0); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	return a
}

func TestTimeAdvanceInInitIsViolation(t *testing.T) {
	a := New[core.Effect]("a1", newStub(), quiet())
	if _, err := a.TimeAdvance(); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
	if err := a.InternalTransition(0); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("transition before init: %v", err)
	}
}

func TestTimeAdvanceOverdue(t *testing.T) {
	b := newStub()
	a := started(t, b)
	events := []core.WireEvent{core.NewMessage("x", "a1", "late").Wire(core.InputPort)}
	if err := a.ExternalTransition(events, 7); err != nil {
		t.Fatalf("external: %v", err)
	}
	if a.State() != StateIdle {
		t.Fatalf("expected IDLE, got %s", a.State())
	}
	if ta, err := a.TimeAdvance(); err != nil || ta != 0 {
		t.Fatalf("effect at 5 is overdue at 7, got %v %v", ta, err)
	}
	if err := a.InternalTransition(7); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if len(b.applied) != 1 || b.applied[0] != 7 || !a.Scheduler().Empty() {
		t.Fatalf("overdue effect not applied: %v", b.applied)
	}
}

func TestTimeAdvancePendingOutbox(t *testing.T) {
	b := newStub()
	a := started(t, b)
	a.Send(core.NewMessage("", core.Broadcast, "hello"))
	if a.State() != StateIdle {
		t.Fatalf("expected IDLE, got %s", a.State())
	}
	if ta, err := a.TimeAdvance(); err != nil || ta != 0 {
		t.Fatalf("pending message should wake now, got %v %v", ta, err)
	}
	if err := a.InternalTransition(0); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if a.State() != StateOutput || len(a.Output(0)) != 1 {
		t.Fatalf("expected OUTPUT with one event, got %s", a.State())
	}
	if len(b.applied) != 0 {
		t.Fatalf("effect at 5 applied early: %v", b.applied)
	}
}

func TestInitTwice(t *testing.T) {
	a := New[core.Effect]("a1", newStub(), quiet())
	if d, err := a.Init(0); err != nil || d != 0 {
		t.Fatalf("init: %v %v", d, err)
	}
	if _, err := a.Init(0); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected protocol violation, got %v", err)
	}
}

func TestSingleEffectScenario(t *testing.T) {
	b := newStub()
	a := started(t, b)
	if a.State() != StateIdle {
		t.Fatalf("expected IDLE, got %s", a.State())
	}
	ta, err := a.TimeAdvance()
	if err != nil || ta != 5 {
		t.Fatalf("expected 5, got %v %v", ta, err)
	}
	if err := a.InternalTransition(5); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !a.Scheduler().Empty() || a.State() != StateIdle {
		t.Fatalf("scheduler len %d state %s", a.Scheduler().Len(), a.State())
	}
	if len(b.applied) != 1 || b.applied[0] != 5 {
		t.Fatalf("effect applied at %v", b.applied)
	}
	if ta, _ := a.TimeAdvance(); !core.IsInfinite(ta) {
		t.Fatalf("expected infinity, got %v", ta)
	}
}

func TestEffectWithMessageEntersOutput(t *testing.T) {
	b := newStub()
	a := started(t, b)
	e := core.NewEffect(5, kindPing, a.Name())
	e.Props.SetNumber("announce", 1)
	if err := a.Scheduler().Update(e); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := a.InternalTransition(5); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if a.State() != StateOutput {
		t.Fatalf("expected OUTPUT, got %s", a.State())
	}
	if ta, _ := a.TimeAdvance(); ta != 0 {
		t.Fatalf("OUTPUT must request an immediate transition, got %v", ta)
	}
	first := a.Output(5)
	second := a.Output(5)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("output not idempotent: %d %d", len(first), len(second))
	}
	if s, _ := first[0].Attrs.Text(core.AttrSender); s != "a1" {
		t.Fatalf("sender not filled: %q", s)
	}
	if err := a.InternalTransition(5); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if a.State() != StateIdle || len(a.Pending()) != 0 || len(a.Output(5)) != 0 {
		t.Fatalf("flush left state %s pending %d", a.State(), len(a.Pending()))
	}
}

func TestExternalFiltersByReceiver(t *testing.T) {
	b := newStub()
	b.reply = true
	a := started(t, b)
	events := []core.WireEvent{
		core.NewMessage("x", "a1", "direct").Wire(core.InputPort),
		core.NewMessage("x", "other", "not-mine").Wire(core.InputPort),
		core.NewMessage("x", core.Broadcast, "all").Wire(core.InputPort),
		core.NewMessage("a1", core.Broadcast, "own").Wire(core.InputPort),
		core.NewMessage("x", "a1", "wrong-port").Wire(core.OutputPort),
	}
	if err := a.ExternalTransition(events, 1); err != nil {
		t.Fatalf("external: %v", err)
	}
	if len(b.received) != 2 || b.received[0].Subject != "direct" || b.received[1].Subject != "all" {
		t.Fatalf("unexpected deliveries %+v", b.received)
	}
	if a.State() != StateOutput || len(a.Output(1)) != 2 {
		t.Fatalf("replies not buffered: %s", a.State())
	}
}

func TestExternalDuringInitWaits(t *testing.T) {
	b := newStub()
	b.reply = true
	a := New[core.Effect]("a1", b, quiet())
	_, _ = a.Init(0)
	msg := core.NewMessage("x", "a1", "early").Wire(core.InputPort)
	if err := a.ExternalTransition([]core.WireEvent{msg}, 0); err != nil {
		t.Fatalf("external: %v", err)
	}
	if a.State() != StateInit {
		t.Fatalf("expected INIT, got %s", a.State())
	}
	if err := a.InternalTransition(0); err != nil {
		t.Fatalf("initial transition: %v", err)
	}
	if a.State() != StateOutput || b.inits != 1 {
		t.Fatalf("expected OUTPUT after init, got %s", a.State())
	}
}

func TestUnknownEffectIsLogged(t *testing.T) {
	b := newStub()
	a := started(t, b)
	if err := a.Scheduler().Add(core.NewEffect(1, kindNoop, "a1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.effects.Apply(core.NewEffect(1, kindNoop, "a1")); !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("expected ErrUnknownEffect, got %v", err)
	}
	if err := a.InternalTransition(1); err != nil {
		t.Fatalf("behavior errors must not stop the run: %v", err)
	}
}

func TestPermissiveScheduler(t *testing.T) {
	a := New[core.Effect]("a1", newStub(), quiet(), WithSchedulerOptions(scheduler.AllowDuplicates()))
	e := core.NewEffect(1, kindPing, "a1")
	if err := a.Scheduler().Add(e); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := a.Scheduler().Add(e); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if a.Scheduler().Len() != 2 {
		t.Fatalf("expected 2 items, got %d", a.Scheduler().Len())
	}
}
