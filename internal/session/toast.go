package session

// Toast is the ephemeral completion notice shown once per finished
// session. It is purely local: never synchronized, cleared by the UI
// after a fixed display window.
type Toast struct {
	Title    string
	Subtitle string
	Icon     string
}

// FinishToast builds the completion toast. Copy depends on whether the
// edited exercise list was written back to the source routine.
func FinishToast(title string, routineUpdated bool) Toast {
	if routineUpdated {
		return Toast{
			Title:    "Routine updated",
			Subtitle: title + " saved with your changes",
			Icon:     "checkmark.seal",
		}
	}
	return Toast{
		Title:    "Workout complete",
		Subtitle: "Nice work on " + title,
		Icon:     "flame",
	}
}

// Metrics are the final derived numbers of a finished session.
type Metrics struct {
	ElapsedSeconds int
	CompletedSets  int
	TotalVolume    float64

	// Health summary attached at session end, produced by an opaque
	// on-device sampler. Zero values when no sampler is present.
	AvgHeartRate   float64
	MaxHeartRate   float64
	ActiveCalories float64
}
