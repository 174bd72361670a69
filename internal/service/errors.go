package service

import (
	"fmt"

	"tower_monitoring/internal/models"
)

// UnsupportedKindError is returned by Save for a record kind with no storage mapping.
type UnsupportedKindError struct {
	Kind models.RecordKind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported record kind %q", e.Kind)
}

// UnknownTableError is returned by Reconcile for a table the mirror does not declare.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("no mirror mapping for table %q", e.Table)
}

// TierWriteError describes one tier's failure inside a fan-out. It is logged
// and folded into the FanOutResult, never returned from Save.
type TierWriteError struct {
	Tier models.Tier
	Err  error
}

func (e *TierWriteError) Error() string {
	return fmt.Sprintf("%s tier: %v", e.Tier, e.Err)
}

func (e *TierWriteError) Unwrap() error { return e.Err }
