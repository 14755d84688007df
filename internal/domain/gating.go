package domain

// Compliance gating reasons, reported verbatim to callers.
const (
	ReasonMissingSOPs     = "Missing SOP acknowledgement"
	ReasonMissingTraining = "Training requirements incomplete"
)

// GatingResult is the immutable outcome of a compliance gating check.
type GatingResult struct {
	Gated              bool
	MissingSOPIDs      []string
	MissingTrainingIDs []string
	Reasons            []string
}

// NotGated returns the satisfied gating result.
func NotGated() GatingResult {
	return GatingResult{Gated: false}
}

// Gated returns a gated result carrying the missing requirement ids.
// Reasons are derived from which requirement sets are unmet.
func Gated(missingSOPIDs, missingTrainingIDs []string) GatingResult {
	var reasons []string
	if len(missingSOPIDs) > 0 {
		reasons = append(reasons, ReasonMissingSOPs)
	}
	if len(missingTrainingIDs) > 0 {
		reasons = append(reasons, ReasonMissingTraining)
	}
	return GatingResult{
		Gated:              true,
		MissingSOPIDs:      missingSOPIDs,
		MissingTrainingIDs: missingTrainingIDs,
		Reasons:            reasons,
	}
}

// missingFrom returns the required ids not present in completed, preserving
// the sorted order of required. A nil completed set is treated as empty.
func missingFrom(required []string, completed []string) []string {
	if len(required) == 0 {
		return nil
	}
	done := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		done[id] = struct{}{}
	}
	var missing []string
	for _, id := range required {
		if _, ok := done[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
