package scenario

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Trigger moves from one strategy to another when an event fires
type Trigger struct {
	Event string `json:"event" yaml:"event"`
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
}

// Switch is one applied transition during a replay
type Switch struct {
	Step  int    `json:"step"`
	Event string `json:"event"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// EventSwitcher is a directed graph of strategies with event-labelled edges
type EventSwitcher struct {
	mu    sync.RWMutex
	edges map[string]map[string]string // from → event → to
}

// NewEventSwitcher creates a switcher with optional initial triggers
func NewEventSwitcher(triggers ...Trigger) *EventSwitcher {
	s := &EventSwitcher{edges: make(map[string]map[string]string)}
	for _, t := range triggers {
		s.AddTrigger(t)
	}
	return s
}

// AddTrigger registers an edge; a later trigger for the same (from, event)
// replaces the earlier one
func (s *EventSwitcher) AddTrigger(t Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edges[t.From] == nil {
		s.edges[t.From] = make(map[string]string)
	}
	s.edges[t.From][t.Event] = t.To
}

// Next returns the strategy after event fires in current, or current if
// no trigger matches
func (s *EventSwitcher) Next(current, event string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if to, ok := s.edges[current][event]; ok {
		return to
	}
	return current
}

// Replay walks a sequence of events from start and records every switch
func (s *EventSwitcher) Replay(start string, events []string) (string, []Switch) {
	cur := start
	var out []Switch
	for i, e := range events {
		next := s.Next(cur, e)
		if next != cur {
			out = append(out, Switch{Step: i, Event: e, From: cur, To: next})
			cur = next
		}
	}
	return cur, out
}

// Triggers lists every edge sorted by from, then event
func (s *EventSwitcher) Triggers() []Trigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Trigger
	for from, evs := range s.edges {
		for ev, to := range evs {
			out = append(out, Trigger{Event: ev, From: from, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Event < out[j].Event
	})
	return out
}

// Mermaid renders the strategy map as a mermaid flowchart
func (s *EventSwitcher) Mermaid() string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")
	for _, t := range s.Triggers() {
		fmt.Fprintf(&b, "    %s -->|%s| %s\n", mermaidID(t.From), t.Event, mermaidID(t.To))
	}
	return b.String()
}

func mermaidID(name string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}
