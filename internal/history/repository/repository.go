package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/actorcontext"
	"github.com/fieldhive/opsledger/internal/history/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repositoryImpl struct {
	genID *snowflake.Node
}

// Provide constructs the history repository.
func Provide(genID *snowflake.Node) domain.Repository {
	return &repositoryImpl{genID: genID}
}

func (r *repositoryImpl) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	if entry.ID == 0 {
		entry.ID = r.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Metadata == nil {
		entry.Metadata = datatypes.JSONMap{}
	}
	if entry.ActorType == "" {
		actorType, actorID := actorcontext.ActorFromContext(ctx)
		entry.ActorType = actorType
		if actorID != "" {
			entry.ActorID = &actorID
		}
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListByInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
