package leads

// Stage is a funnel position.
type Stage string

const (
	StageNew              Stage = "New"
	StageQualified        Stage = "Qualified"
	StageContacted        Stage = "Contacted"
	StageMeetingScheduled Stage = "Meeting Scheduled"
	StageWon              Stage = "Won"
	StageLost             Stage = "Lost"
)

// Stages lists the funnel in hierarchy order.
var Stages = []Stage{
	StageNew,
	StageQualified,
	StageContacted,
	StageMeetingScheduled,
	StageWon,
	StageLost,
}

// Index returns the position of s in the hierarchy. Unknown stages sit at 0.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return 0
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// AdvanceOnQualification returns the stage a lead should move to after a
// positive qualification. Leads already at or past Qualified keep their stage.
func AdvanceOnQualification(current Stage) (Stage, bool) {
	if current.Index() < StageQualified.Index() {
		return StageQualified, true
	}
	return current, false
}
