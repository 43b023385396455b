package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DraftRepository is the Postgres-backed draft.Store.
type DraftRepository interface {
	draft.Store
}

type draftRepo struct{ db *gorm.DB }

func NewDraftRepository(db *gorm.DB) DraftRepository { return &draftRepo{db: db} }

func keyScope(key draft.Key) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("shop = ? AND user_id = ? AND product_id = ? AND variant_id = ?",
			key.TenantID, key.ActorID, key.ProductID, key.VariantID)
	}
}

func (r *draftRepo) Get(ctx context.Context, key draft.Key) (*draft.Draft, error) {
	var row model.Draft
	err := r.db.WithContext(ctx).Scopes(keyScope(key)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, draft.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	d, err := draft.Decode([]byte(row.Payload))
	if err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", row.ID, err)
	}
	return d, nil
}

// Put replaces whatever is stored under key. Last write wins.
func (r *draftRepo) Put(ctx context.Context, key draft.Key, d draft.Draft) error {
	payload, err := draft.Encode(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	row := model.Draft{
		Shop:      key.TenantID,
		UserID:    key.ActorID,
		ProductID: key.ProductID,
		VariantID: key.VariantID,
		Payload:   string(payload),
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "shop"}, {Name: "user_id"}, {Name: "product_id"}, {Name: "variant_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

func (r *draftRepo) Delete(ctx context.Context, key draft.Key) error {
	return r.db.WithContext(ctx).Scopes(keyScope(key)).Delete(&model.Draft{}).Error
}

// List returns the keys of one actor's drafts, most recently saved first.
func (r *draftRepo) List(ctx context.Context, tenantID, actorID string) ([]draft.Key, error) {
	var rows []model.Draft
	err := r.db.WithContext(ctx).
		Select("product_id", "variant_id").
		Where("shop = ? AND user_id = ?", tenantID, actorID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	keys := make([]draft.Key, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, draft.Key{
			TenantID:  tenantID,
			ActorID:   actorID,
			ProductID: row.ProductID,
			VariantID: row.VariantID,
		})
	}
	return keys, nil
}

func (r *draftRepo) PurgeTenant(ctx context.Context, tenantID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("shop = ?", tenantID).Delete(&model.Draft{})
	return res.RowsAffected, res.Error
}
