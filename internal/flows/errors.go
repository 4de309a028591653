package flows

import "errors"

// Error classes of the flows. Callers test them with errors.Is; NotFound is
// reported through scenario.ErrNotFound and storage.ErrNotFound.
var (
	// ErrValidation rejects a request before anything is mutated.
	ErrValidation = errors.New("validation failed")
	// ErrCollaborator means the rater or narrator failed; the turn was rolled back.
	ErrCollaborator = errors.New("collaborator failed")
	// ErrInvariant signals corrupt stored state, e.g. a game without an active act.
	ErrInvariant = errors.New("invariant violated")
	// ErrTurnInProgress rejects a second concurrent mutation of the same game.
	ErrTurnInProgress = errors.New("a turn is already in progress for this game")
)
