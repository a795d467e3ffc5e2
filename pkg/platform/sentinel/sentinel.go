package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: conditional write lost to a concurrent writer, or a unique
//     constraint fired
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrStale: incoming snapshot is at or behind the stored watermark, or
//     would regress a terminal status
//   - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), return explicit
// validation errors from the service layer directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrStale        = errors.New("stale")
	ErrUnavailable  = errors.New("unavailable")
)
