package conversation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// FormatVersion is the snapshot envelope version. Increment on breaking
// changes to the persisted state shape.
const FormatVersion = 1

// envelope is the JSON document written to the store.
type envelope struct {
	FormatVersion int         `json:"format_version"`
	ThreadID      string      `json:"thread_id"`
	SavedAt       time.Time   `json:"saved_at"`
	State         state.State `json:"state"`
}

func encode(s state.State) ([]byte, error) {
	return json.Marshal(envelope{
		FormatVersion: FormatVersion,
		ThreadID:      s.ThreadID,
		SavedAt:       time.Now().UTC(),
		State:         s,
	})
}

func decode(data []byte) (state.State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return state.State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.FormatVersion != FormatVersion {
		return state.State{}, fmt.Errorf("decode snapshot: unsupported format version %d", env.FormatVersion)
	}
	return env.State, nil
}
