package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/freshwall/internal/fieldwork/domain"
	"github.com/smallbiznis/freshwall/pkg/db/option"
	"github.com/smallbiznis/freshwall/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func clients(db *gorm.DB) repository.Repository[domain.ClientRecord] {
	return repository.ProvideStore[domain.ClientRecord](db)
}

func incidents(db *gorm.DB) repository.Repository[domain.IncidentRecord] {
	return repository.ProvideStore[domain.IncidentRecord](db)
}

func (r *repo) InsertClient(ctx context.Context, db *gorm.DB, client *domain.ClientRecord) error {
	return clients(db).Create(ctx, client)
}

func (r *repo) FindClient(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ClientRecord, error) {
	return clients(db).FindOne(ctx, &domain.ClientRecord{}, option.WithWhere("id = ?", id))
}

func (r *repo) DeleteClient(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return clients(db).Delete(ctx, id)
}

func (r *repo) InsertIncident(ctx context.Context, db *gorm.DB, incident *domain.IncidentRecord) error {
	return incidents(db).Create(ctx, incident)
}

func (r *repo) ListIncidents(ctx context.Context, db *gorm.DB, clientID snowflake.ID, from, to time.Time) ([]*domain.IncidentRecord, error) {
	return incidents(db).Find(ctx,
		&domain.IncidentRecord{},
		option.WithWhere("client_id = ?", clientID),
		option.WithWhere("start_time >= ? AND start_time < ?", from, to),
		option.WithSortBy("start_time", "asc"),
		option.WithSortBy("id", "asc"),
	)
}
