package stores

import (
	"context"

	"github.com/smileshop/keystore/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GameStore struct {
	BaseStore
}

func CreateGameStore(db *gorm.DB) *GameStore {
	return &GameStore{BaseStore: BaseStore{db: db}}
}

func (s *GameStore) GetByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	if err := s.GetDB(ctx).First(&game, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// GetByIDForUpdate loads the game under a row lock. Must be called inside a
// transaction; concurrent reservations against the same game serialize here.
func (s *GameStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := s.GetDB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&game, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *GameStore) UpdateKeys(ctx context.Context, id uint, keys models.StringList) error {
	return s.GetDB(ctx).Model(&models.Game{}).
		Where("id = ?", id).
		Update("keys", keys).Error
}
