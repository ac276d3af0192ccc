// Package projects holds the project gallery shown on community and profile
// pages.
package projects

import (
	"encoding/json"
	"errors"
	"fmt"

	"Skillnet/internal/core/feed"
)

// PreviewSize is how many projects a gallery shows before "See All"
const PreviewSize = 4

// EmptyMessage is shown for a gallery with no projects
const EmptyMessage = "No projects yet."

var (
	// ErrNameRequired is returned when a project draft has no name
	ErrNameRequired = errors.New("project name is required")

	// ErrInvalidDraft is returned when a mutation payload is not a project draft
	ErrInvalidDraft = errors.New("invalid project draft")

	// ErrScopeMismatch is returned when a draft names a different community
	// than the gallery it is created from
	ErrScopeMismatch = errors.New("project draft does not match the gallery's community")

	// ErrLikesUnsupported is returned by ToggleCounter; projects cannot be liked
	ErrLikesUnsupported = errors.New("projects cannot be liked")
)

// ProjectMinimal is a gallery card
type ProjectMinimal struct {
	Name      string `json:"Name"`
	Community string `json:"Community"`
	URL       string `json:"URL"`
	ID        uint64 `json:"ID"`
}

// ItemID implements feed.Item
func (p ProjectMinimal) ItemID() uint64 {
	return p.ID
}

// FromRecord decodes one entry of a project page
func FromRecord(raw json.RawMessage) (ProjectMinimal, error) {
	var p ProjectMinimal
	if err := json.Unmarshal(raw, &p); err != nil {
		return ProjectMinimal{}, fmt.Errorf("decode project: %w", err)
	}
	if p.ID == 0 {
		return ProjectMinimal{}, fmt.Errorf("decode project: missing ID")
	}
	return p, nil
}

// Draft is the payload for creating or editing a project
type Draft struct {
	Name        string
	About       string
	CommunityID uint64
}

// Preview returns the cards a gallery shows and whether to offer "See All"
func Preview(snap feed.Snapshot[ProjectMinimal]) ([]ProjectMinimal, bool) {
	visible := snap.Visible()
	if len(visible) <= PreviewSize {
		return visible, false
	}
	return visible[:PreviewSize], true
}
