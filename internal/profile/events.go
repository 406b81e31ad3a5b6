package profile

// Event is one element of the ordered platform broadcast stream driving the
// tracker's fold.
type Event interface {
	isEvent()
}

// Initialize discards accumulated state and rebuilds the snapshot from the
// authoritative profile-group listing. The tracker folds an implicit
// Initialize before any other event.
type Initialize struct{}

// Added reports a new profile group member. A freshly added profile starts
// outside quiet mode.
type Added struct {
	User User
}

// Removed reports that a member left the profile group.
type Removed struct {
	User UserID
}

// AvailabilityChanged reports a quiet-mode flip for an existing member.
type AvailabilityChanged struct {
	User      UserID
	QuietMode bool
}

// Unknown is a broadcast the tracker does not interpret; folded as a no-op.
type Unknown struct {
	Action string
}

func (Initialize) isEvent()          {}
func (Added) isEvent()               {}
func (Removed) isEvent()             {}
func (AvailabilityChanged) isEvent() {}
func (Unknown) isEvent()             {}
