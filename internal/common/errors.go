package common

import "errors"

// Construction-time validation errors. An order carrying one of these never
// reaches a book.
var (
	ErrBlankSymbol      = errors.New("order: symbol must not be blank")
	ErrInvalidQuantity  = errors.New("order: quantity must be positive")
	ErrInvalidPrice     = errors.New("order: price must be positive for LIMIT/IOC/FOC orders")
	ErrUnknownSide      = errors.New("order: unknown side")
	ErrUnknownOrderType = errors.New("order: unknown order type")
)

// Operational errors surfaced from book/engine invariants.
var (
	// ErrFillInvariant signals an internal bookkeeping bug: a fill
	// attempted with a non-positive or over-sized quantity. This should
	// never happen in correct code and is fatal rather than recoverable.
	ErrFillInvariant = errors.New("book: fill violates quantity invariant")
)
