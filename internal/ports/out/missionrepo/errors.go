package missionrepo

import "errors"

var (
	ErrNotFound      = errors.New("mission not found")
	ErrAlreadyExists = errors.New("mission already exists")

	// ErrVehicleActive and ErrTrailerActive signal the exclusivity invariant:
	// at most one IN_MISSION mission per vehicle, and independently per
	// attached trailer.
	ErrVehicleActive = errors.New("vehicle already in mission")
	ErrTrailerActive = errors.New("trailer already in mission")

	// ErrNotActive signals a transition attempted on a terminal mission.
	ErrNotActive = errors.New("mission is not active")
)
