package database

import "errors"

// ErrNotReady wraps ping failures so readiness probes can match them with errors.Is.
var ErrNotReady = errors.New("database not ready")
