// Package selection implements the shared broadcast object that coordinates
// cross-filtering between independent grid and chart clients. A Selection
// carries, per writer, a semantic value and its SQL-predicate form; readers
// ask for "the predicate excluding me" so a client never filters itself with
// its own contribution.
//
// The bus is synchronous and unlocked: all updates and callbacks happen on
// the single control thread that owns the view (HTTP callers serialize in the
// API layer).
package selection

import (
	"github.com/google/uuid"

	"duck-grid/internal/sqlast"
)

// ClientID identifies one writer/reader on a selection. IDs carry a label for
// diagnostics and a uuid so two clients with the same label stay distinct.
type ClientID string

// NewClientID mints a fresh client identity.
func NewClientID(label string) ClientID {
	if label == "" {
		label = "client"
	}
	return ClientID(label + "/" + uuid.NewString())
}

// ResetOrigin is the source recorded by Reset.
const ResetOrigin ClientID = "reset"

// Update is one publish call on a selection.
type Update struct {
	// Source identifies the writer. Required.
	Source ClientID
	// Value is the semantic payload (e.g. chosen values). Nil clears the
	// source's contribution.
	Value any
	// Predicate is the SQL-expression form of Value. Nil clears.
	Predicate sqlast.Expr
	// Recipients, when non-nil, restricts which subscribed clients are
	// notified. Nil means every subscriber.
	Recipients []ClientID
	// ExcludeSource drops the Source client from the notification set. This
	// is the normal mode for filter publishes; highlight-style publishes keep
	// it false so the writer observes its own change.
	ExcludeSource bool
}

// contribution is one writer's current clause.
type contribution struct {
	value     any
	predicate sqlast.Expr
}

// listener is one subscribed callback with its owning client identity.
type listener struct {
	client ClientID
	fn     func(source ClientID)
}

// Selection is a multi-writer, multi-reader broadcast value. Created once per
// logical filter group at setup time; lives for the lifetime of the view.
type Selection struct {
	name string

	// writers holds each source's live clause; order tracks first-write order
	// so predicate folding is deterministic.
	writers map[ClientID]*contribution
	order   []ClientID

	// lastSource and lastValue mirror the most recent write.
	lastSource ClientID
	lastValue  any

	valueSubs  []listener
	activeSubs []listener
}

// New creates a named, empty selection.
func New(name string) *Selection {
	return &Selection{
		name:    name,
		writers: make(map[ClientID]*contribution),
	}
}

// Name returns the selection's name.
func (s *Selection) Name() string { return s.name }

// OnValue subscribes fn to value changes. The owning client identity controls
// recipient filtering and self-exclusion. Returns an unsubscribe func.
func (s *Selection) OnValue(client ClientID, fn func(source ClientID)) func() {
	s.valueSubs = append(s.valueSubs, listener{client: client, fn: fn})
	return unsubscribe(&s.valueSubs, client)
}

// OnActive subscribes fn to transitions between empty and non-empty.
func (s *Selection) OnActive(client ClientID, fn func(source ClientID)) func() {
	s.activeSubs = append(s.activeSubs, listener{client: client, fn: fn})
	return unsubscribe(&s.activeSubs, client)
}

// unsubscribe returns a func removing the client's most recent subscription.
func unsubscribe(subs *[]listener, client ClientID) func() {
	return func() {
		for i := len(*subs) - 1; i >= 0; i-- {
			if (*subs)[i].client == client {
				*subs = append((*subs)[:i], (*subs)[i+1:]...)
				return
			}
		}
	}
}

// Update publishes a new clause for upd.Source and notifies subscribers.
func (s *Selection) Update(upd Update) {
	wasActive := s.Active()

	if upd.Value == nil && upd.Predicate == nil {
		s.removeWriter(upd.Source)
	} else {
		if _, ok := s.writers[upd.Source]; !ok {
			s.order = append(s.order, upd.Source)
		}
		s.writers[upd.Source] = &contribution{value: upd.Value, predicate: upd.Predicate}
	}
	s.lastSource = upd.Source
	s.lastValue = upd.Value

	s.notify(s.valueSubs, upd)
	if wasActive != s.Active() {
		s.notify(s.activeSubs, upd)
	}
}

// Reset clears every contribution. Value and predicate become nil with the
// reset origin as source.
func (s *Selection) Reset() {
	s.writers = make(map[ClientID]*contribution)
	s.order = nil
	s.Update(Update{Source: ResetOrigin})
}

func (s *Selection) removeWriter(id ClientID) {
	if _, ok := s.writers[id]; !ok {
		return
	}
	delete(s.writers, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Selection) notify(subs []listener, upd Update) {
	// Snapshot: a callback may subscribe or unsubscribe.
	snapshot := make([]listener, len(subs))
	copy(snapshot, subs)
	for _, l := range snapshot {
		if upd.ExcludeSource && l.client == upd.Source {
			continue
		}
		if upd.Recipients != nil && !contains(upd.Recipients, l.client) {
			continue
		}
		l.fn(upd.Source)
	}
}

func contains(ids []ClientID, id ClientID) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}

// Active reports whether any writer holds a live clause.
func (s *Selection) Active() bool { return len(s.writers) > 0 }

// Source returns the identity of the last writer.
func (s *Selection) Source() ClientID { return s.lastSource }

// Value returns the most recently written semantic payload (from any writer).
func (s *Selection) Value() any { return s.lastValue }

// ValueFor returns the live value most recently contributed by a writer other
// than client, or nil when no other writer holds one.
func (s *Selection) ValueFor(client ClientID) any {
	for i := len(s.order) - 1; i >= 0; i-- {
		id := s.order[i]
		if id == client {
			continue
		}
		return s.writers[id].value
	}
	return nil
}

// PredicateFor folds the live clauses into one AND-combined predicate.
// A zero-value client ("" — the global read) includes every writer; any other
// client's own contribution is excluded, which is the self-exclusion
// invariant that keeps a grid from filtering itself into an empty page.
func (s *Selection) PredicateFor(client ClientID) sqlast.Expr {
	var parts []sqlast.Expr
	for _, id := range s.order {
		if client != "" && id == client {
			continue
		}
		parts = append(parts, s.writers[id].predicate)
	}
	return sqlast.And(parts...)
}
