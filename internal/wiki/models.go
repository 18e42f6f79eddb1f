package wiki

import "time"

// Page is a wiki document: current content plus its revision history.
// Path and ID are fixed at creation.
type Page struct {
	ID        string     `json:"id" bson:"id" yaml:"id"`
	Title     string     `json:"title" bson:"title" yaml:"title"`
	Content   string     `json:"content" bson:"content" yaml:"content"`
	Path      string     `json:"path" bson:"path" yaml:"path"`
	CreatedBy string     `json:"createdBy" bson:"createdBy" yaml:"createdBy"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt" yaml:"createdAt"`
	UpdatedBy string     `json:"updatedBy" bson:"updatedBy" yaml:"updatedBy"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt" yaml:"updatedAt"`
	Revisions []Revision `json:"revisions" bson:"revisions" yaml:"revisions"`
}

// Revision holds the content a page had immediately before an edit.
type Revision struct {
	ID       string    `json:"id" bson:"id" yaml:"id"`
	Content  string    `json:"content" bson:"content" yaml:"content"`
	EditedBy string    `json:"editedBy" bson:"editedBy" yaml:"editedBy"`
	EditedAt time.Time `json:"editedAt" bson:"editedAt" yaml:"editedAt"`
	Comment  string    `json:"comment" bson:"comment" yaml:"comment"`
}

// Clone returns a deep copy so callers never share the ledger backing array.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.Revisions = make([]Revision, len(p.Revisions))
	copy(c.Revisions, p.Revisions)
	return &c
}

// Settings is stored verbatim; the store never interprets these flags.
type Settings struct {
	AllowFreeEditing      bool `json:"allowFreeEditing" bson:"allowFreeEditing" yaml:"allowFreeEditing"`
	RequireApproval       bool `json:"requireApproval" bson:"requireApproval" yaml:"requireApproval"`
	AllowAnonymousViewing bool `json:"allowAnonymousViewing" bson:"allowAnonymousViewing" yaml:"allowAnonymousViewing"`
}

// DefaultSettings mirrors a freshly installed wiki.
func DefaultSettings() Settings {
	return Settings{AllowFreeEditing: true, RequireApproval: false, AllowAnonymousViewing: true}
}

// SettingsPatch carries a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	AllowFreeEditing      *bool `json:"allowFreeEditing,omitempty"`
	RequireApproval       *bool `json:"requireApproval,omitempty"`
	AllowAnonymousViewing *bool `json:"allowAnonymousViewing,omitempty"`
}

// Apply merges the patch into s and returns the result.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.AllowFreeEditing != nil {
		s.AllowFreeEditing = *p.AllowFreeEditing
	}
	if p.RequireApproval != nil {
		s.RequireApproval = *p.RequireApproval
	}
	if p.AllowAnonymousViewing != nil {
		s.AllowAnonymousViewing = *p.AllowAnonymousViewing
	}
	return s
}

// EventType names a committed mutation.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is published to subscribers after a mutation commits in memory.
type Event struct {
	Type   EventType `json:"type"`
	PageID string    `json:"pageId"`
	Path   string    `json:"path"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

// Crumb is one step of a breadcrumb trail.
type Crumb struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	Current bool   `json:"current"`
}

// Section groups pages sharing a first path segment.
type Section struct {
	Name  string  `json:"name"`
	Pages []*Page `json:"pages"`
}

// Contribution is a page edited by a user they did not create.
type Contribution struct {
	Page   *Page     `json:"page"`
	EditAt time.Time `json:"editedAt"`
}
