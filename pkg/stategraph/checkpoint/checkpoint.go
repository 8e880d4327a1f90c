package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Checkpoint is the immutable snapshot persisted after every superstep.
// Checkpoints for one thread form a tree: resuming from a historical
// checkpoint creates a new child, so ParentID links express branching
// lineage, not a simple list.
type Checkpoint struct {
	// Metadata
	Version   int       `json:"version"`
	ThreadID  string    `json:"thread_id"`
	ID        string    `json:"checkpoint_id"`
	ParentID  string    `json:"parent_checkpoint_id,omitempty"`
	Superstep int       `json:"superstep"`
	CreatedAt time.Time `json:"created_at"`

	// Execution state
	State    json.RawMessage `json:"state"`
	Frontier []string        `json:"frontier"`
}

// New creates a checkpoint with a generated ID.
// State must already be JSON-serialized.
func New(threadID, parentID string, superstep int, state []byte, frontier []string) *Checkpoint {
	next := make([]string, len(frontier))
	copy(next, frontier)
	return &Checkpoint{
		Version:   Version,
		ThreadID:  threadID,
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Superstep: superstep,
		CreatedAt: time.Now().UTC(),
		State:     state,
		Frontier:  next,
	}
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// clone returns an independent copy so stores never hand out shared slices.
func (c *Checkpoint) clone() *Checkpoint {
	cp := *c
	cp.State = make(json.RawMessage, len(c.State))
	copy(cp.State, c.State)
	cp.Frontier = make([]string, len(c.Frontier))
	copy(cp.Frontier, c.Frontier)
	return &cp
}
