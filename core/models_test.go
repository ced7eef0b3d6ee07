package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestBuilding_Validate(t *testing.T) {
	tests := []struct {
		name     string
		building Building
		wantErr  bool
	}{
		{"valid", Building{Address: "123 Main St, New York", Latitude: 40.7128, Longitude: -74.0060}, false},
		{"empty address", Building{Latitude: 40.0, Longitude: -74.0}, true},
		{"latitude too high", Building{Address: "x", Latitude: 90.1, Longitude: 0}, true},
		{"latitude too low", Building{Address: "x", Latitude: -90.1, Longitude: 0}, true},
		{"longitude too high", Building{Address: "x", Latitude: 0, Longitude: 180.1}, true},
		{"longitude too low", Building{Address: "x", Latitude: 0, Longitude: -180.1}, true},
		{"boundary coordinates", Building{Address: "x", Latitude: -90, Longitude: 180}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.building.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestActivity_Validate(t *testing.T) {
	tests := []struct {
		name     string
		activity Activity
		wantErr  bool
	}{
		{"valid root", Activity{Name: "Food", Level: 1}, false},
		{"valid child", Activity{Name: "Meat products", ParentID: int64Ptr(1), Level: 2}, false},
		{"valid leaf", Activity{Name: "Parts", ParentID: int64Ptr(2), Level: 3}, false},
		{"empty name", Activity{Level: 1}, true},
		{"level zero", Activity{Name: "x", Level: 0}, true},
		{"level too deep", Activity{Name: "x", ParentID: int64Ptr(1), Level: 4}, true},
		{"root with parent", Activity{Name: "x", ParentID: int64Ptr(1), Level: 1}, true},
		{"child without parent", Activity{Name: "x", Level: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.activity.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestActivity_IsRoot(t *testing.T) {
	assert.True(t, (&Activity{Name: "Food", Level: 1}).IsRoot())
	assert.False(t, (&Activity{Name: "Meat products", ParentID: int64Ptr(1), Level: 2}).IsRoot())
}

func TestOrganization_Validate(t *testing.T) {
	assert.NoError(t, (&Organization{Name: "Best Foods Inc.", BuildingID: 1}).Validate())
	assert.Error(t, (&Organization{BuildingID: 1}).Validate())
	assert.Error(t, (&Organization{Name: "x"}).Validate())
}
