package pipeline

import "errors"

var (
	// ErrNonExistentDependency is returned when a stage depends on a stage that is not registered
	ErrNonExistentDependency = errors.New("stage depends on non-existent stage")
	// ErrDuplicateStage is returned when two stages share a name
	ErrDuplicateStage = errors.New("duplicate stage")
	// ErrUnknownStage is returned when looking up a stage that is not in the graph
	ErrUnknownStage = errors.New("unknown stage")
)
