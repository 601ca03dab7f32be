package player

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"hdxremote/internal/action"
	"hdxremote/internal/event"
	"hdxremote/internal/player/backend"
	"hdxremote/internal/protocol"
)

type recorder struct {
	events []*event.Event
}

func (r *recorder) Emit(kind event.Kind, props map[string]any, instigator *int) *event.Event {
	e := &event.Event{ID: uint64(len(r.events) + 1), Kind: kind, Props: props, Instigator: instigator}
	r.events = append(r.events, e)
	return e
}

func (r *recorder) kinds() []event.Kind {
	var out []event.Kind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) last(kind event.Kind) *event.Event {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i]
		}
	}
	return nil
}

func (r *recorder) reset() { r.events = nil }

func newTestPlayer() (*Player, *backend.Null, *recorder) {
	b := backend.NewNull(zerolog.Nop())
	rec := &recorder{}
	return New(b, rec, zerolog.Nop()), b, rec
}

// pump applies every pending backend notification.
func pump(p *Player, b *backend.Null) {
	for {
		select {
		case n := <-b.Notifications():
			p.HandleNotification(n)
		default:
			return
		}
	}
}

func client(id int) *int { return &id }

func TestFreshSnapshot(t *testing.T) {
	p, _, _ := newTestPlayer()
	s := p.Snapshot()
	if s.State != "IDLE" || s.CurrentItemIndex != -1 || s.IsPlaying || s.RepeatMode != "OFF" {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Queue == nil {
		t.Fatal("queue must serialise as []")
	}
}

func TestPlayLoadsFirstItem(t *testing.T) {
	p, b, rec := newTestPlayer()
	if err := p.Play(client(1)); err != ErrEmptyQueue {
		t.Fatalf("Play on empty queue = %v", err)
	}
	p.AddItem("a.wav", "A", -1, client(1))
	p.AddItem("b.wav", "B", -1, client(1))
	rec.reset()

	if err := p.Play(client(1)); err != nil {
		t.Fatal(err)
	}
	if p.State() != StateBuffering || !p.IsPlaying() || p.Current() != 0 {
		t.Fatalf("state=%s playing=%v current=%d", p.State(), p.IsPlaying(), p.Current())
	}
	tr := rec.last(event.ItemTransition)
	if tr == nil || tr.Props["index"] != 0 {
		t.Fatalf("transition = %+v", tr)
	}

	pump(p, b)
	if p.State() != StateReady {
		t.Fatalf("state after ready = %s", p.State())
	}
	if rec.last(event.ReadyToPlay) == nil {
		t.Fatal("no READY_TO_PLAY")
	}
}

func TestSeekToNextAlwaysTransitions(t *testing.T) {
	p, _, rec := newTestPlayer()
	if err := p.SeekToNext(client(0)); err != nil {
		t.Fatal(err)
	}
	tr := rec.last(event.ItemTransition)
	if tr == nil || tr.Props["index"] != -1 {
		t.Fatalf("transition on empty queue = %+v", tr)
	}

	p.AddItem("a.wav", "", -1, nil)
	p.AddItem("b.wav", "", -1, nil)
	p.SeekToNext(nil)
	p.SeekToNext(nil)
	if p.Current() != 1 {
		t.Fatalf("current = %d", p.Current())
	}
	p.SeekToNext(nil)
	if p.Current() != 1 {
		t.Fatalf("end of queue without repeat moved to %d", p.Current())
	}
	p.SetRepeatMode(RepeatAll, nil)
	p.SeekToNext(nil)
	if p.Current() != 0 {
		t.Fatalf("repeat all did not wrap: %d", p.Current())
	}
	p.SeekToPrevious(nil)
	if p.Current() != 1 {
		t.Fatalf("previous with repeat all = %d", p.Current())
	}
}

func TestEndedAdvancesAndStops(t *testing.T) {
	p, b, rec := newTestPlayer()
	p.AddItem("a.wav", "", -1, nil)
	p.AddItem("b.wav", "", -1, nil)
	p.Play(nil)
	pump(p, b)

	b.Finish()
	pump(p, b)
	if p.Current() != 1 || p.State() != StateReady {
		t.Fatalf("after first end: current=%d state=%s", p.Current(), p.State())
	}
	if tr := rec.last(event.ItemTransition); tr.Props["reason"] != ReasonAuto {
		t.Fatalf("reason = %v", tr.Props["reason"])
	}

	b.Finish()
	pump(p, b)
	if p.State() != StateEnded || p.IsPlaying() {
		t.Fatalf("after last end: state=%s playing=%v", p.State(), p.IsPlaying())
	}

	if err := p.Play(nil); err != nil {
		t.Fatal(err)
	}
	if p.State() != StateReady || !p.IsPlaying() {
		t.Fatalf("replay: state=%s playing=%v", p.State(), p.IsPlaying())
	}
}

func TestRepeatOneReplays(t *testing.T) {
	p, b, rec := newTestPlayer()
	p.AddItem("a.wav", "", -1, nil)
	p.AddItem("b.wav", "", -1, nil)
	p.SetRepeatMode(RepeatOne, nil)
	p.Play(nil)
	pump(p, b)

	b.Finish()
	pump(p, b)
	if p.Current() != 0 {
		t.Fatalf("current = %d", p.Current())
	}
	if tr := rec.last(event.ItemTransition); tr.Props["reason"] != ReasonRepeat {
		t.Fatalf("reason = %v", tr.Props["reason"])
	}
}

func TestStaleNotificationIgnored(t *testing.T) {
	p, b, _ := newTestPlayer()
	p.AddItem("a.wav", "", -1, nil)
	p.AddItem("b.wav", "", -1, nil)
	p.Play(nil)
	p.SeekToItem(1, nil)

	// first Ready belongs to item 0 and must not mark item 1 ready early
	first := <-b.Notifications()
	p.HandleNotification(first)
	if p.State() != StateBuffering {
		t.Fatalf("stale ready applied: %s", p.State())
	}
	pump(p, b)
	if p.State() != StateReady {
		t.Fatalf("state = %s", p.State())
	}
}

func TestQueueEditsKeepCurrent(t *testing.T) {
	p, _, _ := newTestPlayer()
	for _, u := range []string{"a", "b", "c", "d"} {
		p.AddItem(u+".wav", "", -1, nil)
	}
	p.SeekToItem(2, nil) // c

	p.AddItem("x.wav", "", 0, nil)
	if p.Queue()[p.Current()].URI != "c.wav" {
		t.Fatalf("insert before current: %d", p.Current())
	}
	p.MoveItem(p.Current(), 0, nil)
	if p.Current() != 0 || p.Queue()[0].URI != "c.wav" {
		t.Fatalf("move current: %d %v", p.Current(), p.Queue())
	}
	p.MoveItem(3, 1, nil)
	if p.Queue()[p.Current()].URI != "c.wav" {
		t.Fatal("move after current shifted it")
	}
	p.RemoveItem(2, nil)
	if p.Queue()[p.Current()].URI != "c.wav" {
		t.Fatal("remove after current shifted it")
	}

	if err := p.RemoveItem(10, nil); err == nil {
		t.Fatal("out of range remove accepted")
	}
	if err := p.MoveItem(0, 10, nil); err == nil {
		t.Fatal("out of range move accepted")
	}
}

func TestRemoveLastCurrentStops(t *testing.T) {
	p, b, _ := newTestPlayer()
	p.AddItem("a.wav", "", -1, nil)
	p.Play(nil)
	pump(p, b)

	p.RemoveItem(0, nil)
	if p.Current() != -1 || p.State() != StateIdle || p.IsPlaying() {
		t.Fatalf("current=%d state=%s playing=%v", p.Current(), p.State(), p.IsPlaying())
	}
}

func TestRadio(t *testing.T) {
	p, b, rec := newTestPlayer()
	if err := p.StartRadio("seed.wav", client(3)); err != nil {
		t.Fatal(err)
	}
	if len(p.Queue()) != 1 || p.Radio() != "seed.wav" {
		t.Fatalf("queue=%v radio=%q", p.Queue(), p.Radio())
	}
	p.Play(nil)
	pump(p, b)

	// the seed is queued again when the queue runs out
	b.Finish()
	pump(p, b)
	if len(p.Queue()) != 2 || p.Current() != 1 {
		t.Fatalf("radio did not continue: queue=%d current=%d", len(p.Queue()), p.Current())
	}
	if rec.last(event.RadioCancelled) != nil {
		t.Fatal("server-side queueing cancelled radio")
	}

	p.AddItem("mine.wav", "", -1, client(4))
	e := rec.last(event.RadioCancelled)
	if e == nil || *e.Instigator != 4 || p.Radio() != "" {
		t.Fatalf("radio not cancelled by client edit: %+v", e)
	}

	rec.reset()
	p.CancelRadio(client(4))
	if len(rec.events) != 0 {
		t.Fatal("cancelling inactive radio emitted")
	}
}

func TestSetVolumeAndRepeatValidate(t *testing.T) {
	p, _, rec := newTestPlayer()
	if err := p.SetVolume(101, nil); err == nil {
		t.Fatal("volume 101 accepted")
	}
	if err := p.SetRepeatMode("SOMETIMES", nil); err == nil {
		t.Fatal("bad repeat mode accepted")
	}
	if err := p.SetVolume(40, nil); err != nil {
		t.Fatal(err)
	}
	e := rec.last(event.PropertyChanged)
	if e.Props[event.PropertyKey] != PropVolume || e.Props["value"] != 40 {
		t.Fatalf("volume event = %+v", e.Props)
	}
}

func TestSeekTo(t *testing.T) {
	p, b, rec := newTestPlayer()
	if err := p.SeekTo(10, nil); err != ErrNoItem {
		t.Fatalf("SeekTo without item = %v", err)
	}
	p.AddItem("a.wav", "", -1, nil)
	p.Play(nil)
	pump(p, b)
	if err := p.SeekTo(1500, client(2)); err != nil {
		t.Fatal(err)
	}
	if b.Position() < 1500 {
		t.Fatalf("position = %d", b.Position())
	}
	if e := rec.last(event.Seek); e == nil || e.Props["position_ms"] != int64(1500) {
		t.Fatalf("seek event = %+v", e)
	}
}

func TestActionsThroughDispatcher(t *testing.T) {
	p, _, _ := newTestPlayer()
	d := action.NewDispatcher(action.NewRegistry(Actions(p)), zerolog.Nop())

	add, _ := protocol.NewInvocation("addItem", true, "a.wav", "Song A")
	addMissing, _ := protocol.NewInvocation("addItem", true)
	state, _ := protocol.NewInvocation("getState", true)

	res := d.Dispatch(action.Call{ClientID: 0}, []protocol.Invocation{add, addMissing, state})
	if len(res.Replies) != 3 {
		t.Fatalf("replies = %d", len(res.Replies))
	}
	if !res.Replies[0].Success {
		t.Fatalf("addItem failed: %+v", res.Replies[0])
	}
	if res.Replies[1].Success {
		t.Fatal("addItem without uri succeeded")
	}
	b, err := json.Marshal(res.Replies[2])
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Result protocol.ServerState `json:"result"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Result.Queue) != 1 || got.Result.Queue[0].Title != "Song A" {
		t.Fatalf("state = %+v", got.Result)
	}
}

func TestRestore(t *testing.T) {
	p, _, _ := newTestPlayer()
	p.Restore([]protocol.Item{{ID: 5, URI: "a.wav"}, {ID: 9, URI: "b.wav"}}, RepeatAll, 20)
	item, _ := p.AddItem("c.wav", "", -1, nil)
	if item.ID != 10 {
		t.Fatalf("next id = %d", item.ID)
	}
	if p.Repeat() != RepeatAll || p.Volume() != 20 {
		t.Fatalf("repeat = %s volume = %d", p.Repeat(), p.Volume())
	}
}
