/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package event

import "container/list"

// queue is one recipient's undelivered events, ordered by insertion, with at
// most one entry per coalesce key.
type queue struct {
	order *list.List
	byKey map[string]*list.Element
}

func newQueue() *queue {
	return &queue{order: list.New(), byKey: make(map[string]*list.Element)}
}

// push appends e and returns the event it replaced, if any. The replacement
// goes to the back so the recipient sees the latest state last.
func (q *queue) push(e *Event) *Event {
	key := e.coalesceKey()
	var replaced *Event
	if el, ok := q.byKey[key]; ok {
		replaced = el.Value.(*Event)
		q.order.Remove(el)
	}
	q.byKey[key] = q.order.PushBack(e)
	return replaced
}

// pop removes up to max events from the front.
func (q *queue) pop(max int) []*Event {
	var out []*Event
	for q.order.Len() > 0 && len(out) < max {
		el := q.order.Front()
		e := el.Value.(*Event)
		q.order.Remove(el)
		delete(q.byKey, e.coalesceKey())
		out = append(out, e)
	}
	return out
}

func (q *queue) events() []*Event {
	out := make([]*Event, 0, q.order.Len())
	for el := q.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Event))
	}
	return out
}

func (q *queue) len() int { return q.order.Len() }
