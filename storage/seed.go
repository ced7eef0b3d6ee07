package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"orgdir/core"
	"orgdir/metrics"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedActivity is one node of the activity classifier tree in a seed dataset
type SeedActivity struct {
	Name     string         `yaml:"name"`
	Children []SeedActivity `yaml:"children,omitempty"`
}

// SeedBuilding describes a building in a seed dataset
type SeedBuilding struct {
	Address   string  `yaml:"address"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// SeedOrganization describes an organization in a seed dataset. Buildings are
// referenced by address and activities by name.
type SeedOrganization struct {
	Name            string   `yaml:"name"`
	BuildingAddress string   `yaml:"building_address"`
	PhoneNumbers    []string `yaml:"phone_numbers,omitempty"`
	Activities      []string `yaml:"activities,omitempty"`
}

// SeedDataset is the full initial-data description consumed by the Seeder
type SeedDataset struct {
	Activities    []SeedActivity     `yaml:"activities"`
	Buildings     []SeedBuilding     `yaml:"buildings"`
	Organizations []SeedOrganization `yaml:"organizations"`
}

// SeedResult summarizes what a seeding run created. Rows that already existed
// are counted as skipped, so a repeat run reports all zeros created.
type SeedResult struct {
	ActivitiesCreated    int
	BuildingsCreated     int
	OrganizationsCreated int
	PhoneNumbersCreated  int
	ActivityLinksCreated int
	Skipped              int
}

// Total returns the number of rows created across all tables
func (r SeedResult) Total() int {
	return r.ActivitiesCreated + r.BuildingsCreated + r.OrganizationsCreated +
		r.PhoneNumbersCreated + r.ActivityLinksCreated
}

// Seeder populates the directory with an initial dataset. Every row is keyed
// by a natural key (activity name under parent, building address, organization
// name), so running the seeder repeatedly never duplicates data.
type Seeder struct {
	buildings     *BuildingStorage
	activities    *ActivityStorage
	organizations *OrganizationStorage
	logger        *zap.SugaredLogger
}

// NewSeeder creates a seeder over the given storages
func NewSeeder(db *DB, logger *zap.SugaredLogger) *Seeder {
	return &Seeder{
		buildings:     NewBuildingStorage(db, logger),
		activities:    NewActivityStorage(db, logger),
		organizations: NewOrganizationStorage(db, logger),
		logger:        logger,
	}
}

// LoadSeedDataset reads a dataset from a YAML file
func LoadSeedDataset(path string) (*SeedDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var dataset SeedDataset
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &dataset, nil
}

// Seed applies the dataset, creating only the rows that do not exist yet
func (s *Seeder) Seed(ctx context.Context, dataset *SeedDataset) (*SeedResult, error) {
	result := &SeedResult{}

	activityIDs := make(map[string]int64)
	for _, root := range dataset.Activities {
		if err := s.seedActivity(ctx, root, nil, 1, activityIDs, result); err != nil {
			return nil, err
		}
	}

	buildingIDs := make(map[string]int64)
	for _, sb := range dataset.Buildings {
		id, created, err := s.seedBuilding(ctx, sb)
		if err != nil {
			return nil, err
		}
		buildingIDs[sb.Address] = id
		if created {
			result.BuildingsCreated++
		} else {
			result.Skipped++
		}
	}

	for _, so := range dataset.Organizations {
		if err := s.seedOrganization(ctx, so, buildingIDs, activityIDs, result); err != nil {
			return nil, err
		}
	}

	metrics.SeedRowsCreated.WithLabelValues("activity").Add(float64(result.ActivitiesCreated))
	metrics.SeedRowsCreated.WithLabelValues("building").Add(float64(result.BuildingsCreated))
	metrics.SeedRowsCreated.WithLabelValues("organization").Add(float64(result.OrganizationsCreated))
	metrics.SeedRowsCreated.WithLabelValues("phone_number").Add(float64(result.PhoneNumbersCreated))
	metrics.SeedRowsCreated.WithLabelValues("activity_link").Add(float64(result.ActivityLinksCreated))

	s.logger.Infow("Seeding completed",
		"activities", result.ActivitiesCreated,
		"buildings", result.BuildingsCreated,
		"organizations", result.OrganizationsCreated,
		"phone_numbers", result.PhoneNumbersCreated,
		"activity_links", result.ActivityLinksCreated,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (s *Seeder) seedActivity(ctx context.Context, node SeedActivity, parentID *int64, level int, ids map[string]int64, result *SeedResult) error {
	if level > core.MaxActivityLevel {
		return fmt.Errorf("activity %q exceeds maximum nesting depth %d", node.Name, core.MaxActivityLevel)
	}

	// Organization links reference activities by bare name, so a name used
	// under two parents would make those links ambiguous.
	if _, exists := ids[node.Name]; exists {
		return fmt.Errorf("duplicate activity name %q in seed dataset", node.Name)
	}

	existing, err := s.activities.FindActivityByName(ctx, node.Name, parentID)
	var id int64
	switch {
	case err == nil:
		id = existing.ID
		result.Skipped++
	case errors.Is(err, ErrActivityNotFound):
		created, err := s.activities.CreateActivity(ctx, core.Activity{
			Name:     node.Name,
			ParentID: parentID,
			Level:    level,
		})
		if err != nil {
			return fmt.Errorf("failed to seed activity %q: %w", node.Name, err)
		}
		id = created.ID
		result.ActivitiesCreated++
	default:
		return err
	}

	ids[node.Name] = id
	for _, child := range node.Children {
		if err := s.seedActivity(ctx, child, &id, level+1, ids, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedBuilding(ctx context.Context, sb SeedBuilding) (int64, bool, error) {
	existing, err := s.buildings.FindBuildingByAddress(ctx, sb.Address)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, ErrBuildingNotFound) {
		return 0, false, err
	}

	created, err := s.buildings.CreateBuilding(ctx, core.Building{
		Address:   sb.Address,
		Latitude:  sb.Latitude,
		Longitude: sb.Longitude,
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to seed building %q: %w", sb.Address, err)
	}
	return created.ID, true, nil
}

func (s *Seeder) seedOrganization(ctx context.Context, so SeedOrganization, buildingIDs, activityIDs map[string]int64, result *SeedResult) error {
	buildingID, ok := buildingIDs[so.BuildingAddress]
	if !ok {
		return fmt.Errorf("organization %q references unknown building %q", so.Name, so.BuildingAddress)
	}

	existing, err := s.organizations.FindOrganizationByName(ctx, so.Name)
	var orgID int64
	switch {
	case err == nil:
		orgID = existing.ID
		result.Skipped++
	case errors.Is(err, ErrOrganizationNotFound):
		created, err := s.organizations.CreateOrganization(ctx, core.Organization{
			Name:       so.Name,
			BuildingID: buildingID,
		})
		if err != nil {
			return fmt.Errorf("failed to seed organization %q: %w", so.Name, err)
		}
		orgID = created.ID
		result.OrganizationsCreated++
	default:
		return err
	}

	for _, number := range so.PhoneNumbers {
		has, err := s.organizations.HasPhoneNumber(ctx, orgID, number)
		if err != nil {
			return err
		}
		if has {
			result.Skipped++
			continue
		}
		if err := s.organizations.AddPhoneNumber(ctx, orgID, number); err != nil {
			return fmt.Errorf("failed to seed phone %q for %q: %w", number, so.Name, err)
		}
		result.PhoneNumbersCreated++
	}

	for _, activityName := range so.Activities {
		activityID, ok := activityIDs[activityName]
		if !ok {
			return fmt.Errorf("organization %q references unknown activity %q", so.Name, activityName)
		}
		detail, err := s.organizations.GetOrganizationDetail(ctx, orgID)
		if err != nil {
			return err
		}
		linked := false
		for _, a := range detail.Activities {
			if a.ID == activityID {
				linked = true
				break
			}
		}
		if linked {
			result.Skipped++
			continue
		}
		if err := s.organizations.LinkActivity(ctx, orgID, activityID); err != nil {
			return fmt.Errorf("failed to link %q to activity %q: %w", so.Name, activityName, err)
		}
		result.ActivityLinksCreated++
	}

	return nil
}

// DefaultSeedDataset returns the built-in demo directory: a small activity
// classifier, five buildings and six organizations spread across them.
func DefaultSeedDataset() *SeedDataset {
	return &SeedDataset{
		Activities: []SeedActivity{
			{
				Name: "Food",
				Children: []SeedActivity{
					{Name: "Meat products"},
					{Name: "Dairy products"},
				},
			},
			{
				Name: "Cars",
				Children: []SeedActivity{
					{Name: "Trucks"},
					{
						Name: "Passenger cars",
						Children: []SeedActivity{
							{Name: "Parts"},
							{Name: "Accessories"},
						},
					},
				},
			},
		},
		Buildings: []SeedBuilding{
			{Address: "123 Main St, New York", Latitude: 40.7128, Longitude: -74.0060},
			{Address: "456 Market St, San Francisco", Latitude: 37.7749, Longitude: -122.4194},
			{Address: "789 Lombard St, San Francisco", Latitude: 37.8025, Longitude: -122.4186},
			{Address: "321 Pine St, Seattle", Latitude: 47.6062, Longitude: -122.3321},
			{Address: "654 Broadway, New York", Latitude: 40.7308, Longitude: -73.9973},
		},
		Organizations: []SeedOrganization{
			{
				Name:            "Best Foods Inc.",
				BuildingAddress: "123 Main St, New York",
				PhoneNumbers:    []string{"555-123-4567", "555-234-5678"},
				Activities:      []string{"Food", "Meat products", "Dairy products"},
			},
			{
				Name:            "Dairy King",
				BuildingAddress: "456 Market St, San Francisco",
				PhoneNumbers:    []string{"555-345-6789"},
				Activities:      []string{"Food", "Dairy products"},
			},
			{
				Name:            "Meat Masters",
				BuildingAddress: "123 Main St, New York",
				PhoneNumbers:    []string{"555-456-7890", "555-567-8901"},
				Activities:      []string{"Food", "Meat products"},
			},
			{
				Name:            "Auto World",
				BuildingAddress: "789 Lombard St, San Francisco",
				PhoneNumbers:    []string{"555-678-9012"},
				Activities:      []string{"Cars", "Passenger cars"},
			},
			{
				Name:            "Truck Paradise",
				BuildingAddress: "321 Pine St, Seattle",
				PhoneNumbers:    []string{"555-789-0123"},
				Activities:      []string{"Cars", "Trucks"},
			},
			{
				Name:            "Car Parts Emporium",
				BuildingAddress: "654 Broadway, New York",
				PhoneNumbers:    []string{"555-890-1234", "555-901-2345"},
				Activities:      []string{"Cars", "Passenger cars", "Parts"},
			},
		},
	}
}
