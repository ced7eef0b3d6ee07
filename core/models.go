// Package core defines the domain entities of the organizations directory.
package core

import (
	"errors"
	"fmt"
)

// Activity tree depth is capped: level 1 roots, level 2 children, level 3 leaves.
const (
	MinActivityLevel = 1
	MaxActivityLevel = 3
)

// Building is a physical location that houses organizations.
type Building struct {
	ID        int64   `json:"id"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks address presence and coordinate ranges.
func (b *Building) Validate() error {
	if b.Address == "" {
		return errors.New("building address cannot be empty")
	}
	if b.Latitude < -90 || b.Latitude > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]: %v", b.Latitude)
	}
	if b.Longitude < -180 || b.Longitude > 180 {
		return fmt.Errorf("longitude out of range [-180, 180]: %v", b.Longitude)
	}
	return nil
}

// Activity is a node in the three-level classification tree.
// Root activities have a nil ParentID and level 1.
type Activity struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Level    int    `json:"level"`
}

// Validate checks name presence and the level invariant.
func (a *Activity) Validate() error {
	if a.Name == "" {
		return errors.New("activity name cannot be empty")
	}
	if a.Level < MinActivityLevel || a.Level > MaxActivityLevel {
		return fmt.Errorf("activity level out of range [%d, %d]: %d", MinActivityLevel, MaxActivityLevel, a.Level)
	}
	if a.Level == MinActivityLevel && a.ParentID != nil {
		return errors.New("root activity cannot have a parent")
	}
	if a.Level > MinActivityLevel && a.ParentID == nil {
		return fmt.Errorf("level %d activity requires a parent", a.Level)
	}
	return nil
}

// IsRoot reports whether the activity is a top-level classification.
func (a *Activity) IsRoot() bool {
	return a.ParentID == nil
}

// Organization is a directory entry tied to exactly one building.
type Organization struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	BuildingID int64  `json:"building_id"`
}

// Validate checks name presence and the building reference.
func (o *Organization) Validate() error {
	if o.Name == "" {
		return errors.New("organization name cannot be empty")
	}
	if o.BuildingID <= 0 {
		return errors.New("organization requires a building reference")
	}
	return nil
}

// PhoneNumber is a contact number owned by an organization.
type PhoneNumber struct {
	ID             int64  `json:"id"`
	Number         string `json:"number"`
	OrganizationID int64  `json:"organization_id"`
}

// OrganizationDetail is an organization with its related entities resolved.
type OrganizationDetail struct {
	Organization
	Building     Building      `json:"building"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers"`
	Activities   []Activity    `json:"activities"`
}
