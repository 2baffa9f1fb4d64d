package models

// SyncCursor is the single durable record of sync progress.
// StateToken identifies a snapshot epoch of the remote library, PageToken
// the next page within that epoch ("" means no further pages), and
// InitComplete whether the initial full traversal has finished.
type SyncCursor struct {
	StateToken   string `json:"stateToken"`
	PageToken    string `json:"pageToken"`
	InitComplete bool   `json:"initComplete"`
}

// CursorUpdate is a partial update of the sync cursor. Nil fields are
// left untouched, so interleaved writes of the page token alone never
// clobber the state token.
type CursorUpdate struct {
	StateToken   *string
	PageToken    *string
	InitComplete *bool
}

// IsEmpty reports whether the update would change nothing
func (u CursorUpdate) IsEmpty() bool {
	return u.StateToken == nil && u.PageToken == nil && u.InitComplete == nil
}

// String returns a pointer to s, for building cursor updates
func String(s string) *string {
	return &s
}

// Bool returns a pointer to b, for building cursor updates
func Bool(b bool) *bool {
	return &b
}
