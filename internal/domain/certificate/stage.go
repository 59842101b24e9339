package certificate

// Stage is the position of a single certificate in the ingestion state machine.
//
//	detected -> stabilizing -> extracting -> classified -> relocated -> recorded
//	detected -> stabilizing -> failed -> quarantined -> recorded
type Stage string

const (
	StageDetected    Stage = "detected"
	StageStabilizing Stage = "stabilizing"
	StageExtracting  Stage = "extracting"
	StageClassified  Stage = "classified"
	StageRelocated   Stage = "relocated"
	StageFailed      Stage = "failed"
	StageQuarantined Stage = "quarantined"
	StageRecorded    Stage = "recorded"
)

var stageTransitions = map[Stage][]Stage{
	StageDetected:    {StageStabilizing},
	StageStabilizing: {StageExtracting, StageFailed},
	StageExtracting:  {StageClassified, StageFailed},
	StageClassified:  {StageRelocated, StageFailed},
	StageRelocated:   {StageRecorded},
	StageFailed:      {StageQuarantined, StageRecorded},
	StageQuarantined: {StageRecorded},
}

// CanTransition reports whether next may follow current.
func CanTransition(current Stage, next Stage) bool {
	for _, allowed := range stageTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s == StageRecorded
}
