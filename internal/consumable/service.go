package consumable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zombor/pantry-tracker/internal/extraction"
)

// IDGenerator generates unique IDs for consumables
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator issues random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service reconciles extracted bill items into the consumables inventory
type Service struct {
	db          DB
	extractor   extraction.Extractor
	archive     *BillArchive
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// The archive is optional; pass nil to disable bill archiving.
func NewService(db DB, extractor extraction.Extractor, archive *BillArchive) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		archive:     archive,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, archive *BillArchive, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		archive:     archive,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ProcessBill extracts line items from a bill image and aggregates them into
// the inventory: quantities are added to the matching record, the stored price
// becomes the average of the old price and the newly observed one, and unseen
// keys create new records. Returns one post-merge record per extracted item,
// in extraction order.
func (s *Service) ProcessBill(ctx context.Context, filename string, data []byte, contentType string) ([]*Consumable, error) {
	items := s.extractItems(ctx, filename, data, contentType)

	results := make([]*Consumable, 0, len(items))
	for _, item := range items {
		key := Normalize(item.Name)

		merged, err := s.db.Upsert(key, func(existing *Consumable) (*Consumable, error) {
			now := s.timeSource.Now()
			if existing == nil {
				return &Consumable{
					ID:            s.idGenerator.Generate(),
					DisplayName:   item.Name,
					NormalizedKey: key,
					PriceCents:    item.PriceCents,
					Quantity:      item.Quantity,
					CreatedAt:     now,
					UpdatedAt:     now,
				}, nil
			}
			existing.Quantity += item.Quantity
			// Two-point average of the stored price and the observed price,
			// not quantity-weighted
			existing.PriceCents = (existing.PriceCents + item.PriceCents) / 2
			existing.UpdatedAt = now
			return existing, nil
		})
		if err != nil {
			return nil, fmt.Errorf("reconciling item %q: %w", item.Name, err)
		}
		results = append(results, merged)
	}

	return results, nil
}

// SeedCatalog registers every previously-unseen item name from a bill as a
// zero-quantity, zero-price placeholder, without touching existing records.
// Lets a user import their product vocabulary from historical invoices before
// any stock tracking begins.
func (s *Service) SeedCatalog(ctx context.Context, filename string, data []byte, contentType string) ([]*Consumable, error) {
	items := s.extractItems(ctx, filename, data, contentType)

	results := make([]*Consumable, 0, len(items))
	for _, item := range items {
		key := Normalize(item.Name)

		merged, err := s.db.Upsert(key, func(existing *Consumable) (*Consumable, error) {
			if existing != nil {
				return existing, nil
			}
			now := s.timeSource.Now()
			return &Consumable{
				ID:            s.idGenerator.Generate(),
				DisplayName:   item.Name,
				NormalizedKey: key,
				PriceCents:    0,
				Quantity:      0,
				CreatedAt:     now,
				UpdatedAt:     now,
			}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("seeding item %q: %w", item.Name, err)
		}
		results = append(results, merged)
	}

	return results, nil
}

// extractItems archives the uploaded bill and runs the extractor. An
// extraction failure degrades to zero items so one unreadable document does
// not fail the whole request.
func (s *Service) extractItems(ctx context.Context, filename string, data []byte, contentType string) []extraction.RawItem {
	if s.archive != nil {
		name := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), filename)
		if _, err := s.archive.Save(name, data); err != nil {
			slog.Warn("Failed to archive bill", "filename", filename, "error", err)
		}
	}

	items, err := s.extractor.ExtractItems(ctx, data, contentType)
	if err != nil {
		slog.Warn("Extraction failed, treating bill as empty",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil
	}
	return items
}

// ListConsumables returns all consumables ordered by normalized key
func (s *Service) ListConsumables() ([]*Consumable, error) {
	consumables, err := s.db.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing consumables: %w", err)
	}
	return consumables, nil
}

// DuplicateGroups reports stored records whose display names look like the
// same product under the token-overlap similarity test. Merging stays a
// manual, administrative decision; this only surfaces the candidates.
func (s *Service) DuplicateGroups() ([][]*Consumable, error) {
	consumables, err := s.db.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing consumables: %w", err)
	}

	grouped := make([]bool, len(consumables))
	groups := make([][]*Consumable, 0)
	for i, c := range consumables {
		if grouped[i] {
			continue
		}
		group := []*Consumable{c}
		for j := i + 1; j < len(consumables); j++ {
			if grouped[j] {
				continue
			}
			if AreSimilar(c.DisplayName, consumables[j].DisplayName) {
				group = append(group, consumables[j])
				grouped[j] = true
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}

	return groups, nil
}
