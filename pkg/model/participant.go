package model

import "time"

// Participant is a chat member, either supplied at chat creation or inferred
// the first time a message from that sender is observed.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

// Roster is the deduplicated participant set for one chat. First sighting of
// an id wins, later sightings never update name or role. Not safe for
// concurrent use.
type Roster struct {
	seen  map[string]struct{}
	items []Participant
}

func NewRoster(initial []Participant) *Roster {
	r := &Roster{seen: make(map[string]struct{}, len(initial))}
	for _, p := range initial {
		r.Observe(p)
	}
	return r
}

// Observe adds the participant iff no entry with the same id exists and
// reports whether it was added.
func (r *Roster) Observe(p Participant) bool {
	if _, ok := r.seen[p.ID]; ok {
		return false
	}
	r.seen[p.ID] = struct{}{}
	r.items = append(r.items, p)
	return true
}

// Snapshot returns a copy of the roster in observation order.
func (r *Roster) Snapshot() []Participant {
	out := make([]Participant, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Roster) Len() int {
	return len(r.items)
}
