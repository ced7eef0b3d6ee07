package service

import (
	"context"
	"fmt"
	"time"

	"orgdir/core"
	"orgdir/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// OrganizationStorage defines the organization operations needed by the service.
// Defined here (consumer package) following Interface Segregation Principle.
type OrganizationStorage interface {
	ListOrganizationsByName(ctx context.Context, name string, skip, limit int) ([]core.Organization, error)
	ListOrganizationsByBuilding(ctx context.Context, buildingID int64, skip, limit int) ([]core.Organization, error)
	ListOrganizationsByBuildingIDs(ctx context.Context, buildingIDs []int64, skip, limit int) ([]core.Organization, error)
	ListOrganizationsByActivityIDs(ctx context.Context, activityIDs []int64, skip, limit int) ([]core.Organization, error)
	GetOrganizationDetail(ctx context.Context, id int64) (*core.OrganizationDetail, error)
}

// ActivityStorage defines the activity operations needed for subtree expansion.
type ActivityStorage interface {
	GetActivity(ctx context.Context, id int64) (*core.Activity, error)
	ListChildren(ctx context.Context, parentID int64) ([]core.Activity, error)
}

// BuildingStorage defines the building operations needed for geo search.
type BuildingStorage interface {
	GetBuilding(ctx context.Context, id int64) (*core.Building, error)
	ListBuildings(ctx context.Context) ([]core.Building, error)
	ListBuildingsInBox(ctx context.Context, box core.BoundingBox) ([]core.Building, error)
}

// Page holds normalized pagination parameters
type Page struct {
	Skip  int
	Limit int
}

// DirectoryService implements the directory search operations on top of the
// storage layer. Activity subtrees are memoized in a bounded LRU cache since
// the classifier changes only on reseeding.
type DirectoryService struct {
	organizations OrganizationStorage
	activities    ActivityStorage
	buildings     BuildingStorage
	subtreeCache  *lru.Cache[int64, []int64]
	detailCache   *DetailCache
	logger        *zap.SugaredLogger

	defaultLimit int
	maxLimit     int
}

// DirectoryServiceOptions configures optional service behavior
type DirectoryServiceOptions struct {
	SubtreeCacheSize int
	DetailCache      *DetailCache
	DefaultLimit     int
	MaxLimit         int
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(
	organizations OrganizationStorage,
	activities ActivityStorage,
	buildings BuildingStorage,
	logger *zap.SugaredLogger,
	opts DirectoryServiceOptions,
) (*DirectoryService, error) {
	if opts.SubtreeCacheSize <= 0 {
		opts.SubtreeCacheSize = 1024
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 100
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 1000
	}

	cache, err := lru.New[int64, []int64](opts.SubtreeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create subtree cache: %w", err)
	}

	return &DirectoryService{
		organizations: organizations,
		activities:    activities,
		buildings:     buildings,
		subtreeCache:  cache,
		detailCache:   opts.DetailCache,
		logger:        logger,
		defaultLimit:  opts.DefaultLimit,
		maxLimit:      opts.MaxLimit,
	}, nil
}

// NormalizePage clamps pagination parameters to the configured bounds
func (s *DirectoryService) NormalizePage(skip, limit int) Page {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return Page{Skip: skip, Limit: limit}
}

// SearchByName returns organizations whose name contains the given substring
func (s *DirectoryService) SearchByName(ctx context.Context, name string, page Page) ([]core.Organization, error) {
	return s.organizations.ListOrganizationsByName(ctx, name, page.Skip, page.Limit)
}

// ListByBuilding returns organizations located in the given building. The
// building must exist.
func (s *DirectoryService) ListByBuilding(ctx context.Context, buildingID int64, page Page) ([]core.Organization, error) {
	if _, err := s.buildings.GetBuilding(ctx, buildingID); err != nil {
		return nil, err
	}
	return s.organizations.ListOrganizationsByBuilding(ctx, buildingID, page.Skip, page.Limit)
}

// SearchByActivity returns organizations linked to the given activity. When
// includeDescendants is set the whole subtree below the activity matches too,
// so searching "Food" finds organizations linked only to "Meat products".
func (s *DirectoryService) SearchByActivity(ctx context.Context, activityID int64, includeDescendants bool, page Page) ([]core.Organization, error) {
	if !includeDescendants {
		if _, err := s.activities.GetActivity(ctx, activityID); err != nil {
			return nil, err
		}
		return s.organizations.ListOrganizationsByActivityIDs(ctx, []int64{activityID}, page.Skip, page.Limit)
	}

	ids, err := s.expandActivitySubtree(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return s.organizations.ListOrganizationsByActivityIDs(ctx, ids, page.Skip, page.Limit)
}

// expandActivitySubtree returns the activity id plus all descendant ids.
// The tree is capped at three levels, so two rounds of child expansion
// cover every possible subtree.
func (s *DirectoryService) expandActivitySubtree(ctx context.Context, activityID int64) ([]int64, error) {
	if cached, ok := s.subtreeCache.Get(activityID); ok {
		metrics.ActivityCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.ActivityCacheHits.WithLabelValues("miss").Inc()

	root, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	ids := []int64{root.ID}
	frontier := []int64{root.ID}
	for level := root.Level; level < core.MaxActivityLevel && len(frontier) > 0; level++ {
		var next []int64
		for _, id := range frontier {
			children, err := s.activities.ListChildren(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				ids = append(ids, child.ID)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}

	s.subtreeCache.Add(activityID, ids)
	return ids, nil
}

// SearchRadius returns organizations whose building lies within radiusKm of
// the center point, measured along the great circle.
func (s *DirectoryService) SearchRadius(ctx context.Context, center core.GeoPoint, radiusKm float64, page Page) ([]core.Organization, error) {
	start := time.Now()
	defer func() {
		metrics.GeoSearchDuration.WithLabelValues("radius").Observe(time.Since(start).Seconds())
	}()

	if radiusKm <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %v", radiusKm)
	}

	buildings, err := s.buildings.ListBuildings(ctx)
	if err != nil {
		return nil, err
	}

	var buildingIDs []int64
	for _, b := range buildings {
		point := core.GeoPoint{Latitude: b.Latitude, Longitude: b.Longitude}
		if center.DistanceKm(point) <= radiusKm {
			buildingIDs = append(buildingIDs, b.ID)
		}
	}

	return s.organizations.ListOrganizationsByBuildingIDs(ctx, buildingIDs, page.Skip, page.Limit)
}

// SearchRectangle returns organizations whose building lies inside the
// bounding box. Buildings exactly on an edge are included.
func (s *DirectoryService) SearchRectangle(ctx context.Context, box core.BoundingBox, page Page) ([]core.Organization, error) {
	start := time.Now()
	defer func() {
		metrics.GeoSearchDuration.WithLabelValues("rectangle").Observe(time.Since(start).Seconds())
	}()

	if box.MinLatitude > box.MaxLatitude || box.MinLongitude > box.MaxLongitude {
		return nil, fmt.Errorf("invalid bounding box: min corner must not exceed max corner")
	}

	buildings, err := s.buildings.ListBuildingsInBox(ctx, box)
	if err != nil {
		return nil, err
	}

	var buildingIDs []int64
	for _, b := range buildings {
		buildingIDs = append(buildingIDs, b.ID)
	}

	return s.organizations.ListOrganizationsByBuildingIDs(ctx, buildingIDs, page.Skip, page.Limit)
}

// GetOrganization returns the full organization card. Results are served from
// the detail cache when one is configured; cache failures fall through to
// storage.
func (s *DirectoryService) GetOrganization(ctx context.Context, id int64) (*core.OrganizationDetail, error) {
	if s.detailCache != nil {
		if detail, ok := s.detailCache.Get(ctx, id); ok {
			return detail, nil
		}
	}

	detail, err := s.organizations.GetOrganizationDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.detailCache != nil {
		s.detailCache.Set(ctx, id, detail)
	}
	return detail, nil
}
