package store

import "github.com/pkg/errors"

var (
	// ErrTagNotFound is returned when a referenced tag does not exist.
	ErrTagNotFound = errors.New("tag not found")
	// ErrOwnerNotFound is returned when a member or catalog item does not exist.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrUsageCountUnderflow is returned when removing an association would drive
	// a tag's usage count below zero. The enclosing transaction is rolled back.
	ErrUsageCountUnderflow = errors.New("tag usage count underflow")
)
