package model

import "errors"

var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrBadChecksum      = errors.New("address checksum mismatch")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidThreshold = errors.New("threshold must be between 1 and the number of owners")
	ErrDuplicateOwner   = errors.New("duplicate owner")
	ErrInvalidNumber    = errors.New("invalid unsigned integer")
)
