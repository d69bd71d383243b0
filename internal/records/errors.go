package records

import "errors"

var (
	// ErrRead marks failures reading the records directory or a record file.
	ErrRead = errors.New("record store read error")
	// ErrWrite marks failures persisting a record.
	ErrWrite = errors.New("record store write error")
	// ErrMalformed marks a record file that does not parse or is missing
	// required fields. List reports these as problems instead of failing.
	ErrMalformed = errors.New("malformed record")
)
