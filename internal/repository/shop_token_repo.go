package repository

import (
	"context"
	"errors"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTokenNotFound is returned when no access token is stored for a shop user.
var ErrTokenNotFound = errors.New("shop token not found")

type ShopTokenRepository interface {
	Save(ctx context.Context, t *model.ShopToken) error
	Find(ctx context.Context, shop, userID string) (*model.ShopToken, error)
	DeleteByShop(ctx context.Context, shop string) (int64, error)
}

type shopTokenRepo struct{ db *gorm.DB }

func NewShopTokenRepository(db *gorm.DB) ShopTokenRepository { return &shopTokenRepo{db: db} }

// Save inserts the token or refreshes the one already stored for the same
// shop and user.
func (r *shopTokenRepo) Save(ctx context.Context, t *model.ShopToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shop"}, {Name: "associated_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "scope", "user_email", "expires_at", "updated_at"}),
	}).Create(t).Error
}

func (r *shopTokenRepo) Find(ctx context.Context, shop, userID string) (*model.ShopToken, error) {
	var t model.ShopToken
	err := r.db.WithContext(ctx).
		Where("shop = ? AND associated_user_id = ?", shop, userID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *shopTokenRepo) DeleteByShop(ctx context.Context, shop string) (int64, error) {
	res := r.db.WithContext(ctx).Where("shop = ?", shop).Delete(&model.ShopToken{})
	return res.RowsAffected, res.Error
}
