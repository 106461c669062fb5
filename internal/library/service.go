package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/curvelab/curvelab/backend-go/internal/curve"
	"github.com/curvelab/curvelab/backend-go/internal/curvedoc"
	"github.com/curvelab/curvelab/backend-go/internal/store"
	"github.com/curvelab/curvelab/backend-go/internal/typeid"
)

var (
	ErrNotFound    = errors.New("curve not found")
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidData = errors.New("invalid curve document")
)

// Service owns curve metadata and snapshots. Every stored document has
// been validated by loading it into an engine instance first, so a
// malformed import never reaches the database.
type Service struct {
	queries *store.Queries
}

func NewService(queries *store.Queries) *Service {
	return &Service{queries: queries}
}

type CurveInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Create makes a new curve seeded from the named preset (or the default
// constant curve) and stores its first snapshot.
func (s *Service) Create(ctx context.Context, name, preset, ownerID string) (*CurveInfo, error) {
	curveID := typeid.NewCurveID()

	dbCurve, err := s.queries.CreateCurve(ctx, store.CreateCurveParams{
		ID:      curveID,
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create curve: %w", err)
	}

	doc := curvedoc.NewDefaultDocument(curveID, name)
	if preset != "" {
		doc.Points = curvedoc.PresetPoints(preset)
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.queries.CreateSnapshot(ctx, store.CreateSnapshotParams{
		ID:       typeid.NewSnapshotID(),
		CurveID:  curveID,
		Version:  1,
		Document: docJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return dbCurveToInfo(dbCurve), nil
}

func (s *Service) Get(ctx context.Context, curveID, userID string) (*CurveInfo, error) {
	dbCurve, err := s.getOwned(ctx, curveID, userID)
	if err != nil {
		return nil, err
	}
	return dbCurveToInfo(*dbCurve), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]CurveInfo, error) {
	dbCurves, err := s.queries.ListCurvesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list curves: %w", err)
	}

	infos := make([]CurveInfo, len(dbCurves))
	for i, c := range dbCurves {
		infos[i] = *dbCurveToInfo(c)
	}
	return infos, nil
}

func (s *Service) Delete(ctx context.Context, curveID, userID string) error {
	if _, err := s.getOwned(ctx, curveID, userID); err != nil {
		return err
	}
	return s.queries.DeleteCurve(ctx, curveID)
}

// GetLatestDocument returns the most recent stored document.
func (s *Service) GetLatestDocument(ctx context.Context, curveID, userID string) (*curvedoc.Document, error) {
	if _, err := s.getOwned(ctx, curveID, userID); err != nil {
		return nil, err
	}

	snap, err := s.queries.GetLatestSnapshot(ctx, curveID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var doc curvedoc.Document
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

// SaveDocument validates the document through the engine's bulk import
// and stores it as a new snapshot version.
func (s *Service) SaveDocument(ctx context.Context, curveID, userID string, doc *curvedoc.Document) (*curvedoc.Document, error) {
	if _, err := s.getOwned(ctx, curveID, userID); err != nil {
		return nil, err
	}

	scratch := curve.New()
	defer scratch.Close()
	if err := doc.Apply(scratch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	nextVersion := int32(1)
	if snap, err := s.queries.GetLatestSnapshot(ctx, curveID); err == nil {
		nextVersion = snap.Version + 1
	}

	stored := *doc
	stored.ID = curveID
	stored.Version = int(nextVersion)

	docJSON, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.queries.CreateSnapshot(ctx, store.CreateSnapshotParams{
		ID:       typeid.NewSnapshotID(),
		CurveID:  curveID,
		Version:  nextVersion,
		Document: docJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	return &stored, nil
}

// BakedTable loads the latest document into a scratch engine, bakes it
// in the foreground and returns the dense sample table. This is the
// read path preview renderers use.
func (s *Service) BakedTable(ctx context.Context, curveID, userID string) ([]float64, error) {
	doc, err := s.GetLatestDocument(ctx, curveID, userID)
	if err != nil {
		return nil, err
	}

	scratch := curve.New()
	defer scratch.Close()
	if err := doc.Apply(scratch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	scratch.Bake()

	table := make([]float64, doc.BakeResolution)
	if doc.BakeResolution == 1 {
		table[0] = scratch.SampleBaked(0)
		return table, nil
	}
	for i := range table {
		table[i] = scratch.SampleBaked(float64(i) / float64(doc.BakeResolution-1))
	}
	return table, nil
}

func (s *Service) getOwned(ctx context.Context, curveID, userID string) (*store.Curve, error) {
	if err := typeid.Validate(curveID, typeid.PrefixCurve); err != nil {
		return nil, ErrNotFound
	}

	dbCurve, err := s.queries.GetCurve(ctx, curveID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get curve: %w", err)
	}
	if dbCurve.OwnerID != userID {
		return nil, ErrForbidden
	}
	return &dbCurve, nil
}

func dbCurveToInfo(c store.Curve) *CurveInfo {
	return &CurveInfo{
		ID:        c.ID,
		Name:      c.Name,
		OwnerID:   c.OwnerID,
		CreatedAt: c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: c.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
