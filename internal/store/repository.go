package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MediaFilter selects media rows for removal. Empty fields do not filter.
type MediaFilter struct {
	// Year matches media whose path contains "/<Year>/".
	Year string
	// Event matches media whose event contains Event.
	Event string
}

// PersistMedia inserts m and its thumbnail img in one transaction. On
// success m.ID and img.MediaID are set.
func (s *RecordStore) PersistMedia(ctx context.Context, m *Media, img *Image) error {
	if m == nil || img == nil {
		return errors.New("media and image are required")
	}
	if !hasCoordinates(m) || strings.TrimSpace(m.Event) == "" {
		return fmt.Errorf("media %q is missing coordinates or event", m.Path)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Images").Create(m).Error; err != nil {
			return fmt.Errorf("failed to create media: %w", err)
		}
		img.MediaID = m.ID
		if err := tx.Create(img).Error; err != nil {
			return fmt.Errorf("failed to create image: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Uint("media_id", m.ID).
		Uint("image_id", img.ID).
		Str("event", m.Event).
		Msg("Media persisted")
	return nil
}

func hasCoordinates(m *Media) bool {
	return m.Latitude != nil && m.Longitude != nil
}

// DeleteAllImages removes every image row and returns the count.
func (s *RecordStore) DeleteAllImages(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Image{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete images: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAllMedia removes every media row and returns the count. Images
// must be deleted first.
func (s *RecordStore) DeleteAllMedia(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Media{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete media: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// FindMedia returns geotagged media matching filter with their images,
// ordered by id.
func (s *RecordStore) FindMedia(ctx context.Context, filter MediaFilter) ([]Media, error) {
	query := s.db.WithContext(ctx).
		Preload("Images").
		Where("latitude IS NOT NULL AND longitude IS NOT NULL")

	if filter.Year != "" {
		query = query.Where(`path LIKE ? ESCAPE '\'`, "%/"+escapeLike(filter.Year)+"/%")
	}
	if filter.Event != "" {
		query = query.Where(`event LIKE ? ESCAPE '\'`, "%"+escapeLike(filter.Event)+"%")
	}

	var media []Media
	if err := query.Order("id").Find(&media).Error; err != nil {
		return nil, fmt.Errorf("failed to find media: %w", err)
	}
	return media, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// DeleteMedia removes the given media rows and their images in one
// transaction and returns the number of media rows deleted.
func (s *RecordStore) DeleteMedia(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id IN ?", ids).Delete(&Image{}).Error; err != nil {
			return fmt.Errorf("failed to delete images: %w", err)
		}
		res := tx.Where("id IN ?", ids).Delete(&Media{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete media: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// CountMedia returns the number of media rows.
func (s *RecordStore) CountMedia(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Media{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return n, nil
}

// CountImages returns the number of image rows.
func (s *RecordStore) CountImages(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Image{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}
