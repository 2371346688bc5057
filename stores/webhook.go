package stores

import (
	"context"

	"github.com/smileshop/keystore/models"
	"gorm.io/gorm"
)

type WebhookStore struct {
	BaseStore
}

func CreateWebhookStore(db *gorm.DB) *WebhookStore {
	return &WebhookStore{BaseStore: BaseStore{db: db}}
}

func (s *WebhookStore) Create(ctx context.Context, event *models.WebhookEvent) error {
	return s.GetDB(ctx).Create(event).Error
}
