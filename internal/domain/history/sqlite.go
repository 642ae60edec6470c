package history

import (
	"context"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"stayonboard-server-go/internal/domain/validation/aggregate"
	"stayonboard-server-go/internal/domain/validation/repository"
	"stayonboard-server-go/internal/platform/errors"
	"stayonboard-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db *gorm.DB
}

// NewSQLite builds a history store on an opened gorm handle.
func NewSQLite(db *gorm.DB) (repository.HistoryStore, error) {
	if db == nil {
		return nil, errors.New(errors.KindConfig, "history.sqlite", "database handle required")
	}
	return &sqliteStore{db: db}, nil
}

func toModel(record aggregate.Record) (storage.ValidationRecord, error) {
	request, err := sonic.Marshal(record.Request)
	if err != nil {
		return storage.ValidationRecord{}, err
	}
	verdict, err := sonic.Marshal(record.Verdict)
	if err != nil {
		return storage.ValidationRecord{}, err
	}
	return storage.ValidationRecord{
		ID:        record.ID,
		Principal: record.Principal,
		Kind:      string(record.Request.Kind),
		Request:   request,
		Verdict:   verdict,
		FromCache: record.FromCache,
		CreatedAt: record.CreatedAt,
	}, nil
}

func fromModel(model storage.ValidationRecord) (aggregate.Record, error) {
	record := aggregate.Record{
		ID:        model.ID,
		Principal: model.Principal,
		FromCache: model.FromCache,
		CreatedAt: model.CreatedAt,
	}
	if err := sonic.Unmarshal(model.Request, &record.Request); err != nil {
		return aggregate.Record{}, err
	}
	if err := sonic.Unmarshal(model.Verdict, &record.Verdict); err != nil {
		return aggregate.Record{}, err
	}
	return record, nil
}

func (s *sqliteStore) Append(ctx context.Context, record aggregate.Record) error {
	const op = "history.append"
	if record.ID == "" || record.Principal == "" {
		return errors.New(errors.KindStorage, op, "record id and principal required")
	}

	model, err := toModel(record)
	if err != nil {
		return errors.Wrap(errors.KindStorage, op, "encode record", err)
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return errors.Wrap(errors.KindStorage, op, "insert record", err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (aggregate.Record, error) {
	const op = "history.get"
	var model storage.ValidationRecord
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return aggregate.Record{}, errors.New(errors.KindNotFound, op, "record not found: "+id)
		}
		return aggregate.Record{}, errors.Wrap(errors.KindStorage, op, "load record", err)
	}

	record, err := fromModel(model)
	if err != nil {
		return aggregate.Record{}, errors.Wrap(errors.KindStorage, op, "decode record", err)
	}
	return record, nil
}

func (s *sqliteStore) ListByPrincipal(
	ctx context.Context,
	principal string,
	pageSize int,
	token string,
) (repository.Page, error) {
	const op = "history.list"
	if pageSize <= 0 {
		return repository.Page{}, errors.New(errors.KindInvalidParameters, op, "page size must be positive")
	}

	// Ids are UUIDv7, so descending id order is newest-first and the last
	// id of a page doubles as the continuation token.
	query := s.db.WithContext(ctx).
		Where("principal = ?", principal).
		Order("id DESC").
		Limit(pageSize + 1)
	if token != "" {
		query = query.Where("id < ?", token)
	}

	var models []storage.ValidationRecord
	if err := query.Find(&models).Error; err != nil {
		return repository.Page{}, errors.Wrap(errors.KindStorage, op, "query records", err)
	}

	page := repository.Page{}
	more := len(models) > pageSize
	if more {
		models = models[:pageSize]
	}
	for _, model := range models {
		record, err := fromModel(model)
		if err != nil {
			return repository.Page{}, errors.Wrap(errors.KindStorage, op, "decode record", err)
		}
		page.Records = append(page.Records, record)
	}
	if more && len(page.Records) > 0 {
		page.NextToken = page.Records[len(page.Records)-1].ID
	}
	return page, nil
}

func (s *sqliteStore) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
