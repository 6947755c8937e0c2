package domain

import "errors"

// ErrNotFound signals that a ledger write targeted a row that does not
// exist. It is always fatal to the enclosing operation.
var ErrNotFound = errors.New("record not found")
