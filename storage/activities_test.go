package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetActivityNotFound(t *testing.T) {
	db := newTestDB(t)
	activities := NewActivityStorage(db, zap.NewNop().Sugar())

	_, err := activities.GetActivity(context.Background(), 7)
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestListChildren(t *testing.T) {
	db := newSeededDB(t)
	activities := NewActivityStorage(db, zap.NewNop().Sugar())
	ctx := context.Background()

	cars, err := activities.FindActivityByName(ctx, "Cars", nil)
	require.NoError(t, err)

	children, err := activities.ListChildren(ctx, cars.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	names := []string{children[0].Name, children[1].Name}
	assert.Contains(t, names, "Trucks")
	assert.Contains(t, names, "Passenger cars")

	// Leaf nodes have no children
	trucks, err := activities.FindActivityByName(ctx, "Trucks", &cars.ID)
	require.NoError(t, err)
	leaves, err := activities.ListChildren(ctx, trucks.ID)
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestListActivitiesOrderedByLevel(t *testing.T) {
	db := newSeededDB(t)
	activities := NewActivityStorage(db, zap.NewNop().Sugar())

	all, err := activities.ListActivities(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 8)
	assert.Equal(t, 1, all[0].Level)
	assert.Equal(t, 3, all[len(all)-1].Level)
}
