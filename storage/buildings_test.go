package storage

import (
	"context"
	"testing"

	"orgdir/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListBuildings(t *testing.T) {
	db := newSeededDB(t)
	buildings := NewBuildingStorage(db, zap.NewNop().Sugar())

	all, err := buildings.ListBuildings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestGetBuildingNotFound(t *testing.T) {
	db := newTestDB(t)
	buildings := NewBuildingStorage(db, zap.NewNop().Sugar())

	_, err := buildings.GetBuilding(context.Background(), 42)
	assert.ErrorIs(t, err, ErrBuildingNotFound)
}

func TestCreateBuildingValidation(t *testing.T) {
	db := newTestDB(t)
	buildings := NewBuildingStorage(db, zap.NewNop().Sugar())

	_, err := buildings.CreateBuilding(context.Background(), core.Building{
		Address:  "1 Out Of Range Ave",
		Latitude: 95, Longitude: 0,
	})
	assert.Error(t, err)
}

func TestListBuildingsInBox(t *testing.T) {
	db := newSeededDB(t)
	buildings := NewBuildingStorage(db, zap.NewNop().Sugar())
	ctx := context.Background()

	// Box around San Francisco catches the two SF buildings
	box := core.BoundingBox{
		MinLatitude:  37.0,
		MaxLatitude:  38.0,
		MinLongitude: -123.0,
		MaxLongitude: -122.0,
	}
	found, err := buildings.ListBuildingsInBox(ctx, box)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// Edge coordinates are inclusive
	exact := core.BoundingBox{
		MinLatitude:  37.7749,
		MaxLatitude:  37.7749,
		MinLongitude: -122.4194,
		MaxLongitude: -122.4194,
	}
	found, err = buildings.ListBuildingsInBox(ctx, exact)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "456 Market St, San Francisco", found[0].Address)
}
