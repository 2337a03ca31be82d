package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// State is an original's position in the asset lifecycle. It is never held
// in memory between requests: StateOf re-derives it from the database, with
// the presence of a downloaded face as the sole discriminant of Finalized.
type State int

const (
	StateNoCartoon State = iota
	StateHasTemporaryCartoons
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateNoCartoon:
		return "no_cartoon"
	case StateHasTemporaryCartoons:
		return "has_temporary_cartoons"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateOf derives the lifecycle state of an original owned by a device.
func (m *Manager) StateOf(ctx context.Context, deviceID string, originalID uuid.UUID) (State, error) {
	face, err := m.store.GetFaceByOriginal(ctx, originalID, deviceID)
	if err != nil {
		return StateNoCartoon, err
	}
	if face != nil {
		return StateFinalized, nil
	}

	cartoons, err := m.store.ListCartoonsByOriginal(ctx, originalID, deviceID)
	if err != nil {
		return StateNoCartoon, err
	}
	if len(cartoons) > 0 {
		return StateHasTemporaryCartoons, nil
	}
	return StateNoCartoon, nil
}
