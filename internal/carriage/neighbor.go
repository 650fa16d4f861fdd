package carriage

import (
	"strings"

	"github.com/danmuck/brctl/internal/protocol"
)

// Relation is the position of the most recently observed neighbor.
// At most one flag is set.
type Relation struct {
	InFront bool
	Behind  bool
}

// Neighbors derives the speed regime from foreign carriage ids seen on the
// controller path. Only the latest observation is kept.
type Neighbors struct {
	selfID string
	prefix string
	self   int
	rel    Relation
	last   string
}

// NewNeighbors fails when selfID does not carry a numeric ordinal.
func NewNeighbors(selfID, prefix string) (*Neighbors, error) {
	if strings.TrimSpace(prefix) == "" {
		prefix = protocol.DefaultIDPrefix
	}
	self, err := protocol.ParseOrdinal(selfID, prefix)
	if err != nil {
		return nil, err
	}
	return &Neighbors{selfID: selfID, prefix: prefix, self: self}, nil
}

// Observe records senderID. Messages carrying this carriage's own id are
// ignored and report false.
func (n *Neighbors) Observe(senderID string) (bool, error) {
	if senderID == n.selfID {
		return false, nil
	}
	other, err := protocol.ParseOrdinal(senderID, n.prefix)
	if err != nil {
		return false, err
	}
	if other > n.self {
		n.rel = Relation{InFront: true}
	} else {
		n.rel = Relation{Behind: true}
	}
	n.last = senderID
	return true, nil
}

func (n *Neighbors) Relation() Relation { return n.rel }

// Last returns the id behind the current relation, empty before any
// observation.
func (n *Neighbors) Last() string { return n.last }

// Regime is FullSpeed with no neighbor, MaintainingPace otherwise.
func (n *Neighbors) Regime() State {
	if !n.rel.InFront && !n.rel.Behind {
		return StateFullSpeed
	}
	return StateMaintainingPace
}
