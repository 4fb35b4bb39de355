package transfers

import "errors"

var (
	// ErrRecipientNotFound indicates the destination email resolves to no
	// active user.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrSelfTransfer indicates sender and recipient are the same user.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")
)
