package authz

import "errors"

// ErrPermissionDenied marks access-control failures. Never retried; mapped
// to a 403-equivalent at the API boundary.
var ErrPermissionDenied = errors.New("permission denied")
