package query

// State is a step of the per-request pipeline.
type State string

// Pipeline states, in order. StateError is reachable from any state before StateDone.
const (
	StateValidating State = "validating"
	StateFiltering  State = "filtering"
	StateRouting    State = "routing"
	StateRetrieving State = "retrieving"
	StateAssembling State = "assembling"
	StateDone       State = "done"
	StateError      State = "error"
)
