package controller

// SessionState is the editable state of one client session. The Controller
// owns it; callers read copies through Controller.State.
type SessionState struct {
	SessionID   string
	Filter      string
	Format      string
	Genome      string
	Email       string
	Description string

	// Fields are the column names the portal reported for filters.
	Fields []string

	// Masks are the names of the portal's predefined filters.
	Masks []string
}

func (s SessionState) clone() SessionState {
	s.Fields = append([]string(nil), s.Fields...)
	s.Masks = append([]string(nil), s.Masks...)
	return s
}

// Area names where a user-facing message is shown.
type Area string

const (
	// AreaSession shows session load and id messages.
	AreaSession Area = "session"

	// AreaEmail shows email validation and confirmation messages.
	AreaEmail Area = "email"

	// AreaStatus shows schema, mask and draft validation messages.
	AreaStatus Area = "status"

	// AreaSubmission shows per-job submission failures.
	AreaSubmission Area = "submission"
)

// Notifier shows user-facing messages. Notify with an empty text clears the
// area.
type Notifier interface {
	Notify(area Area, text string)
}

// BoardResetter clears the job board before a loaded session repopulates it.
type BoardResetter interface {
	ResetBoard()
}
