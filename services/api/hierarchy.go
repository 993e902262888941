package api

import (
	"context"
	"errors"
	"fmt"
)

// maxManagerDepth bounds how far a manager chain is walked.
const maxManagerDepth = 64

var (
	ErrManagerCycle     = errors.New("manager assignment would create a cycle")
	ErrHierarchyTooDeep = errors.New("manager chain exceeds maximum depth")
	// ErrUnknownManager matches ErrUserNotFound as well.
	ErrUnknownManager = fmt.Errorf("manager %w", ErrUserNotFound)
)

// managerOf returns the manager id of a user, or nil for a root.
type managerOf func(ctx context.Context, userID int64) (*int64, error)

// checkManagerChain walks upward from managerID and fails if userID is
// reached, which would make userID its own indirect manager.
func checkManagerChain(ctx context.Context, userID, managerID int64, lookup managerOf) error {
	if userID == managerID {
		return ErrManagerCycle
	}

	current := managerID
	for depth := 0; depth < maxManagerDepth; depth++ {
		next, err := lookup(ctx, current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if *next == userID {
			return fmt.Errorf("%w: %d already reports to %d", ErrManagerCycle, managerID, userID)
		}
		current = *next
	}
	return ErrHierarchyTooDeep
}
