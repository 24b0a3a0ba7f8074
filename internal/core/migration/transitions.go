package migration

// Stage is a position in the single forward pass of a migration.
type Stage int

const (
	StageInit Stage = iota
	StageInitializing
	StageMigratingHikes
	StageMigratingObservations
	StageUploadingImages
	StageComplete
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageInitializing:
		return "initializing"
	case StageMigratingHikes:
		return "migrating_hikes"
	case StageMigratingObservations:
		return "migrating_observations"
	case StageUploadingImages:
		return "uploading_images"
	case StageComplete:
		return "complete"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// CanTransition reports whether an event of stage to may follow one of stage from.
// Stages only move forward; a stage may repeat; Error is reachable from any
// non-terminal stage; nothing follows a terminal stage.
func CanTransition(from, to Stage) bool {
	if from == StageComplete || from == StageError {
		return false
	}
	if to == StageError {
		return true
	}
	if to == StageInitializing {
		return from == StageInit
	}
	if from == StageInit {
		return false
	}
	return to >= from
}

// ValidateSequence checks an emitted event sequence against the ordering rules:
// legal stage transitions, Current rising by one within a counted stage, and a
// single terminal event at the end.
func ValidateSequence(events []Progress) bool {
	if len(events) == 0 {
		return false
	}
	prev := StageInit
	lastCurrent := 0
	for i, ev := range events {
		stage := ev.Stage()
		if !CanTransition(prev, stage) {
			return false
		}
		if stage != prev {
			lastCurrent = 0
		}
		if cur, total, ok := counter(ev); ok {
			// Image events may repeat the same Current while bytes flow.
			repeatable := stage == StageUploadingImages && cur == lastCurrent
			if (cur != lastCurrent+1 && !repeatable) || cur > total {
				return false
			}
			lastCurrent = cur
		}
		if IsTerminal(ev) && i != len(events)-1 {
			return false
		}
		prev = stage
	}
	return IsTerminal(events[len(events)-1])
}

func counter(p Progress) (current, total int, ok bool) {
	switch v := p.(type) {
	case MigratingHikes:
		return v.Current, v.Total, true
	case MigratingObservations:
		return v.Current, v.Total, true
	case UploadingImages:
		return v.Current, v.Total, true
	default:
		return 0, 0, false
	}
}
