package game

import "errors"

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrAgentExists   = errors.New("agent already exists")
	ErrNoPlacement   = errors.New("no valid placement found")
	ErrOutOfBounds   = errors.New("target is out of bounds")
	ErrNotAdjacent   = errors.New("target is more than one tile away")
	ErrBlocked       = errors.New("target is occupied or impassable")
)
