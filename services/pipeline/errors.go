// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"errors"
	"fmt"
)

// StageError wraps an infrastructure failure from a pipeline stage.
//
// A StageError means the request could not be answered at all (embedding
// service down, generation timeout, corpus unreachable). It is distinct
// from a low-confidence answer, which is a valid response: callers must be
// able to tell "the system answered but isn't confident" apart from "the
// system could not answer". Handlers map StageError to a 502-class response.
type StageError struct {
	Stage State
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStageError checks whether err is a *StageError.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}

// stageFailure wraps err with the failing stage label.
func stageFailure(stage State, err error) error {
	return &StageError{Stage: stage, Err: err}
}
