package session

import "errors"

var (
	// ErrRoomExists is returned when creating a lobby whose id is taken.
	ErrRoomExists = errors.New("room already exists")
	// ErrRoomNotFound is returned when addressing an unknown room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned to a third joiner: both colors are taken.
	ErrRoomFull = errors.New("room full")
	// ErrNotMember is returned when a session acts in a room it never joined.
	ErrNotMember = errors.New("not a room member")
)
