package model

import "errors"

var (
	ErrUnknownConceptKind  = errors.New("unknown concept kind")
	ErrUnknownSequenceKind = errors.New("unknown sequence kind")
	ErrLegacyQuantifying   = errors.New(`sequence kind "quantifying" is legacy; use "looping"`)
	ErrPlanNotAcyclic      = errors.New("inference plan is not acyclic")
	ErrDuplicateFlowIndex  = errors.New("duplicate flow index")
)
