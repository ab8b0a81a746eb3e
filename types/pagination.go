package types

import "github.com/studyhallhq/studyhall/errs"

const maxPageSize = 200

type Page[T any] struct {
	Items    []T      `json:"items"`
	PageInfo PageInfo `json:"pageInfo"`
}

type PageInfo struct {
	StartCursor     *string `json:"startCursor"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
}

// PageArgs paginates backwards through history: Last is the window
// size counted from the newest item, Before loads older items past
// a previously returned start cursor.
type PageArgs struct {
	Last   *uint
	Before *string
}

func (args *PageArgs) Validate() error {
	if args.Last != nil && *args.Last < 1 {
		return errs.NewInvalidArgumentError("Last", "last must be greater than 0")
	}

	if args.Last != nil && *args.Last > maxPageSize {
		return errs.NewInvalidArgumentError("Last", "last overflow")
	}

	return nil
}
