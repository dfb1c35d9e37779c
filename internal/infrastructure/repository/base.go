package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/saradorri/cardgame/internal/infrastructure/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// crud holds the lookups and deletes shared by every entity repository
type crud[T domain.Entity] struct {
	db        *database.Database
	validator *validation.Validator
	logger    *logger.Logger
	table     string
	entity    string
}

func newCrud[T domain.Entity](db *database.Database, validator *validation.Validator, log *logger.Logger) crud[T] {
	var zero T
	table := zero.TableName()
	return crud[T]{
		db:        db,
		validator: validator,
		logger:    log.Named(table),
		table:     table,
		entity:    domain.EntityName(table),
	}
}

// GetByID returns the row with the given key, or nil when there is none
func (r *crud[T]) GetByID(ctx context.Context, id int) (*T, error) {
	var row T
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &row, nil
}

// Find returns the first row matching q, or nil when nothing matches
func (r *crud[T]) Find(ctx context.Context, q domain.Query) (*T, error) {
	q.Limit = 1
	rows, err := r.FindAll(ctx, q)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// MustFind is Find that fails with *domain.NotFoundError on no match
func (r *crud[T]) MustFind(ctx context.Context, q domain.Query) (*T, error) {
	row, err := r.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &domain.NotFoundError{Entity: r.entity, Criteria: q.String()}
	}
	return row, nil
}

// FindAll returns every row matching q
func (r *crud[T]) FindAll(ctx context.Context, q domain.Query) ([]*T, error) {
	tx, err := applyQuery(r.db.WithContext(ctx), new(T), q)
	if err != nil {
		return nil, err
	}

	var rows []*T
	if err := tx.Find(&rows).Error; err != nil {
		r.logger.Error("Failed to query rows", zap.String("query", q.String()), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// Count returns the number of rows matching the filter of q
func (r *crud[T]) Count(ctx context.Context, q domain.Query) (int64, error) {
	db := r.db.WithContext(ctx)
	s, err := parseSchema(db, new(T))
	if err != nil {
		return 0, err
	}
	tx, err := applyFilter(db.Model(new(T)), s, q)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// save writes every column of row except its key and creation time.
// check runs inside the transaction after the existence check.
func (r *crud[T]) save(ctx context.Context, row *T, check func(tx *gorm.DB, id int) error) error {
	id, err := keyOf(row)
	if err != nil {
		return err
	}
	if err := r.validator.Check(r.entity, *row).OrNil(); err != nil {
		return err
	}

	err = r.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, r.table, id); err != nil {
			return err
		}
		if check != nil {
			if err := check(tx, id); err != nil {
				return err
			}
		}
		if err := tx.Model(row).Select("*").Omit(clause.Associations, "ID", "CreatedAt").Updates(row).Error; err != nil {
			return err
		}
		return tx.Take(row, id).Error
	})
	if err != nil {
		r.logger.Warn("Failed to update row", zap.Int("id", id), zap.Error(err))
		return err
	}

	r.logger.Debug("Row updated", zap.Int("id", id))
	return nil
}

// Delete removes row and applies the delete policy of every relation
// leaving its table: owned foreign keys are nulled and junction rows go.
func (r *crud[T]) Delete(ctx context.Context, row *T) error {
	id, err := keyOf(row)
	if err != nil {
		return err
	}

	err = r.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, r.table, id); err != nil {
			return err
		}
		if err := detachDependents(tx, r.table, id); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Delete(new(T), id).Error
	})
	if err != nil {
		r.logger.Warn("Failed to delete row", zap.Int("id", id), zap.Error(err))
		return err
	}

	r.logger.Info("Row deleted", zap.Int("id", id))
	return nil
}

func detachDependents(tx *gorm.DB, table string, id int) error {
	for _, rel := range domain.RelationsFrom(table) {
		switch rel.OnDelete {
		case domain.OnDeleteSetNull:
			err := tx.Model(domain.NewModel(rel.Target)).
				Where(clause.Eq{Column: rel.ForeignKey, Value: id}).
				Update(rel.ForeignKey, nil).Error
			if err != nil {
				return err
			}
		case domain.OnDeleteCascade:
			err := tx.Where(clause.Eq{Column: rel.ForeignKey, Value: id}).
				Delete(domain.NewModel(rel.Through)).Error
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// keyOf returns the key of a persisted instance
func keyOf[T domain.Entity](row *T) (int, error) {
	var zero T
	if row == nil {
		return 0, &domain.InvalidStateError{Entity: domain.EntityName(zero.TableName()), State: domain.StateUnpersisted}
	}
	id := (*row).PrimaryKey()
	if id == 0 {
		return 0, &domain.InvalidStateError{Entity: domain.EntityName(zero.TableName()), State: domain.StateUnpersisted}
	}
	return id, nil
}

// requireRow fails with *domain.InvalidStateError when the keyed row is gone
func requireRow(tx *gorm.DB, table string, id int) error {
	return requireRows(tx, table, []int{id})
}

func requireRows(tx *gorm.DB, table string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	var found []int
	if err := tx.Table(table).Where("id IN ?", ids).Pluck(domain.KeyColumn, &found).Error; err != nil {
		return err
	}

	present := make(map[int]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return &domain.InvalidStateError{Entity: domain.EntityName(table), ID: id, State: domain.StateDeleted}
		}
	}
	return nil
}

// requireReference fails with a foreign key *domain.IntegrityError when the
// row a foreign key column points at does not exist
func requireReference(tx *gorm.DB, column string, table string, id int) error {
	err := requireRow(tx, table, id)
	var stateErr *domain.InvalidStateError
	if errors.As(err, &stateErr) {
		return &domain.IntegrityError{
			Kind:       domain.ConstraintForeignKey,
			Constraint: column,
			Err:        fmt.Errorf("%s %d does not exist", stateErr.Entity, id),
		}
	}
	return err
}
