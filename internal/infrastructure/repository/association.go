package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accessor is the part shared by every typed relation accessor
type accessor struct {
	db       *database.Database
	relation domain.Relation
	logger   *logger.Logger
}

// resolveRelation looks up name on S and checks that it leads to T with the given kind
func resolveRelation[S, T domain.Entity](name string, kind domain.RelationKind) (domain.Relation, error) {
	var (
		source S
		target T
	)
	rel, ok := domain.LookupRelation(source.TableName(), name)
	if !ok {
		return domain.Relation{}, &domain.RelationError{
			Source:   domain.EntityName(source.TableName()),
			Relation: name,
			Reason:   "no such relation",
		}
	}
	if rel.Kind != kind {
		return domain.Relation{}, &domain.RelationError{
			Source:   domain.EntityName(source.TableName()),
			Relation: name,
			Reason:   fmt.Sprintf("is %s, not %s", rel.Kind, kind),
		}
	}
	if rel.Target != target.TableName() {
		return domain.Relation{}, &domain.RelationError{
			Source:   domain.EntityName(source.TableName()),
			Relation: name,
			Reason: fmt.Sprintf("targets %s, not %s",
				domain.EntityName(rel.Target), domain.EntityName(target.TableName())),
		}
	}
	return rel, nil
}

func newAccessor(db *database.Database, rel domain.Relation, log *logger.Logger) accessor {
	return accessor{
		db:       db,
		relation: rel,
		logger:   log.Named("relation").WithField("relation", rel.Source+"."+rel.Name),
	}
}

// keysOf returns the distinct keys of persisted targets in argument order
func keysOf[T domain.Entity](rows []*T) ([]int, error) {
	ids := make([]int, 0, len(rows))
	seen := make(map[int]struct{}, len(rows))
	for _, row := range rows {
		id, err := keyOf(row)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// reload refreshes the columns of every row from the store
func reload[T domain.Entity](tx *gorm.DB, rows ...*T) error {
	for _, row := range rows {
		if row == nil {
			continue
		}
		if err := tx.Take(row, (*row).PrimaryKey()).Error; err != nil {
			return err
		}
	}
	return nil
}

func (a accessor) ordered(db *gorm.DB, model interface{}, order []domain.OrderBy) (*gorm.DB, error) {
	s, err := parseSchema(db, model)
	if err != nil {
		return nil, err
	}
	columns, err := resolveOrder(s, order)
	if err != nil {
		return nil, err
	}
	return applyOrder(db.Model(model), columns), nil
}

// HasOne reads and writes a one-to-one relation from the side that does not
// hold the foreign key
type HasOne[S, T domain.Entity] struct {
	accessor
}

// NewHasOne builds the accessor for the named has-one relation of S
func NewHasOne[S, T domain.Entity](db *database.Database, name string, log *logger.Logger) (*HasOne[S, T], error) {
	rel, err := resolveRelation[S, T](name, domain.HasOne)
	if err != nil {
		return nil, err
	}
	return &HasOne[S, T]{accessor: newAccessor(db, rel, log)}, nil
}

// Get returns the related row, or nil when there is none
func (a *HasOne[S, T]) Get(ctx context.Context, source *S) (*T, error) {
	id, err := keyOf(source)
	if err != nil {
		return nil, err
	}
	db := a.db.WithContext(ctx)
	if err := requireRow(db, a.relation.Source, id); err != nil {
		return nil, err
	}

	var rows []*T
	err = db.Where(clause.Eq{Column: a.relation.ForeignKey, Value: id}).
		Order(domain.KeyColumn).Limit(1).Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Set links target to source, releasing whatever source held before.
// A nil target only releases. target is reloaded on success.
func (a *HasOne[S, T]) Set(ctx context.Context, source *S, target *T) error {
	sourceID, err := keyOf(source)
	if err != nil {
		return err
	}
	targetID := 0
	if target != nil {
		if targetID, err = keyOf(target); err != nil {
			return err
		}
	}

	fk := a.relation.ForeignKey
	err = a.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, a.relation.Source, sourceID); err != nil {
			return err
		}
		if target != nil {
			if err := requireRow(tx, a.relation.Target, targetID); err != nil {
				return err
			}
		}

		err := tx.Model(new(T)).
			Where(clause.Eq{Column: fk, Value: sourceID}).
			Where(clause.Neq{Column: domain.KeyColumn, Value: targetID}).
			Update(fk, nil).Error
		if err != nil || target == nil {
			return err
		}

		if err := tx.Model(new(T)).Where(clause.Eq{Column: domain.KeyColumn, Value: targetID}).Update(fk, sourceID).Error; err != nil {
			return err
		}
		return reload(tx, target)
	})
	if err != nil {
		return err
	}

	a.logger.Debug("Relation set", zap.Int("source", sourceID), zap.Int("target", targetID))
	return nil
}

// BelongsTo reads and writes a relation from the side that holds the foreign key
type BelongsTo[S, T domain.Entity] struct {
	accessor
}

// NewBelongsTo builds the accessor for the named belongs-to relation of S
func NewBelongsTo[S, T domain.Entity](db *database.Database, name string, log *logger.Logger) (*BelongsTo[S, T], error) {
	rel, err := resolveRelation[S, T](name, domain.BelongsTo)
	if err != nil {
		return nil, err
	}
	return &BelongsTo[S, T]{accessor: newAccessor(db, rel, log)}, nil
}

// Get returns the referenced row, or nil when the foreign key is empty.
// The key is read from the store, not from source.
func (a *BelongsTo[S, T]) Get(ctx context.Context, source *S) (*T, error) {
	id, err := keyOf(source)
	if err != nil {
		return nil, err
	}
	db := a.db.WithContext(ctx)

	var fk sql.NullInt64
	err = db.Table(a.relation.Source).
		Select(a.relation.ForeignKey).
		Where(clause.Eq{Column: domain.KeyColumn, Value: id}).
		Row().Scan(&fk)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.InvalidStateError{Entity: domain.EntityName(a.relation.Source), ID: id, State: domain.StateDeleted}
	}
	if err != nil || !fk.Valid {
		return nil, err
	}

	var target T
	if err := db.Take(&target, int(fk.Int64)).Error; err != nil {
		return nil, err
	}
	return &target, nil
}

// Set points source at target, or clears the reference when target is nil.
// source is reloaded on success.
func (a *BelongsTo[S, T]) Set(ctx context.Context, source *S, target *T) error {
	sourceID, err := keyOf(source)
	if err != nil {
		return err
	}
	var value interface{}
	targetID := 0
	if target != nil {
		if targetID, err = keyOf(target); err != nil {
			return err
		}
		value = targetID
	}

	fk := a.relation.ForeignKey
	err = a.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, a.relation.Source, sourceID); err != nil {
			return err
		}
		if target != nil {
			if err := requireRow(tx, a.relation.Target, targetID); err != nil {
				return err
			}
		}

		if a.relation.Unique && target != nil {
			err := tx.Model(new(S)).
				Where(clause.Eq{Column: fk, Value: targetID}).
				Where(clause.Neq{Column: domain.KeyColumn, Value: sourceID}).
				Update(fk, nil).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Model(new(S)).Where(clause.Eq{Column: domain.KeyColumn, Value: sourceID}).Update(fk, value).Error; err != nil {
			return err
		}
		return reload(tx, source)
	})
	if err != nil {
		return err
	}

	a.logger.Debug("Relation set", zap.Int("source", sourceID), zap.Int("target", targetID))
	return nil
}

// HasMany reads and writes a one-to-many relation from the "one" side
type HasMany[S, T domain.Entity] struct {
	accessor
}

// NewHasMany builds the accessor for the named has-many relation of S
func NewHasMany[S, T domain.Entity](db *database.Database, name string, log *logger.Logger) (*HasMany[S, T], error) {
	rel, err := resolveRelation[S, T](name, domain.HasMany)
	if err != nil {
		return nil, err
	}
	return &HasMany[S, T]{accessor: newAccessor(db, rel, log)}, nil
}

// Get returns the related rows, by ascending key unless order says otherwise
func (a *HasMany[S, T]) Get(ctx context.Context, source *S, order ...domain.OrderBy) ([]*T, error) {
	id, err := keyOf(source)
	if err != nil {
		return nil, err
	}
	db := a.db.WithContext(ctx)
	if err := requireRow(db, a.relation.Source, id); err != nil {
		return nil, err
	}

	tx, err := a.ordered(db, new(T), order)
	if err != nil {
		return nil, err
	}
	var rows []*T
	if err := tx.Where(clause.Eq{Column: a.relation.ForeignKey, Value: id}).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of related rows
func (a *HasMany[S, T]) Count(ctx context.Context, source *S) (int64, error) {
	id, err := keyOf(source)
	if err != nil {
		return 0, err
	}
	db := a.db.WithContext(ctx)
	if err := requireRow(db, a.relation.Source, id); err != nil {
		return 0, err
	}

	var count int64
	err = db.Model(new(T)).Where(clause.Eq{Column: a.relation.ForeignKey, Value: id}).Count(&count).Error
	return count, err
}

// Add links targets to source, taking them from any previous owner.
// targets are reloaded on success.
func (a *HasMany[S, T]) Add(ctx context.Context, source *S, targets ...*T) error {
	return a.link(ctx, source, targets, false)
}

// Set makes targets the exact set of rows linked to source
func (a *HasMany[S, T]) Set(ctx context.Context, source *S, targets ...*T) error {
	return a.link(ctx, source, targets, true)
}

func (a *HasMany[S, T]) link(ctx context.Context, source *S, targets []*T, replace bool) error {
	sourceID, err := keyOf(source)
	if err != nil {
		return err
	}
	ids, err := keysOf(targets)
	if err != nil {
		return err
	}

	fk := a.relation.ForeignKey
	err = a.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, a.relation.Source, sourceID); err != nil {
			return err
		}
		if err := requireRows(tx, a.relation.Target, ids); err != nil {
			return err
		}

		if replace {
			stale := tx.Model(new(T)).Where(clause.Eq{Column: fk, Value: sourceID})
			if len(ids) > 0 {
				stale = stale.Where(clause.Not(clause.IN{Column: clause.PrimaryColumn, Values: toValues(ids)}))
			}
			if err := stale.Update(fk, nil).Error; err != nil {
				return err
			}
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Model(new(T)).Where(clause.IN{Column: clause.PrimaryColumn, Values: toValues(ids)}).Update(fk, sourceID).Error; err != nil {
			return err
		}
		return reload(tx, targets...)
	})
	if err != nil {
		return err
	}

	a.logger.Debug("Relation linked", zap.Int("source", sourceID), zap.Ints("targets", ids), zap.Bool("replace", replace))
	return nil
}

// Remove unlinks targets from source. Rows linked elsewhere are left alone.
func (a *HasMany[S, T]) Remove(ctx context.Context, source *S, targets ...*T) error {
	sourceID, err := keyOf(source)
	if err != nil {
		return err
	}
	ids, err := keysOf(targets)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	fk := a.relation.ForeignKey
	return a.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, a.relation.Source, sourceID); err != nil {
			return err
		}
		err := tx.Model(new(T)).
			Where(clause.Eq{Column: fk, Value: sourceID}).
			Where(clause.IN{Column: clause.PrimaryColumn, Values: toValues(ids)}).
			Update(fk, nil).Error
		if err != nil {
			return err
		}
		return reload(tx, targets...)
	})
}

// BelongsToMany reads and writes a many-to-many relation through a junction table
type BelongsToMany[S, T domain.Entity] struct {
	accessor
}

// NewBelongsToMany builds the accessor for the named many-to-many relation of S
func NewBelongsToMany[S, T domain.Entity](db *database.Database, name string, log *logger.Logger) (*BelongsToMany[S, T], error) {
	rel, err := resolveRelation[S, T](name, domain.BelongsToMany)
	if err != nil {
		return nil, err
	}
	return &BelongsToMany[S, T]{accessor: newAccessor(db, rel, log)}, nil
}

func (a *BelongsToMany[S, T]) junction(tx *gorm.DB, sourceID int) *gorm.DB {
	return tx.Model(domain.NewModel(a.relation.Through)).
		Where(clause.Eq{Column: a.relation.ForeignKey, Value: sourceID})
}

// Get returns the linked rows, by ascending key unless order says otherwise
func (a *BelongsToMany[S, T]) Get(ctx context.Context, source *S, order ...domain.OrderBy) ([]*T, error) {
	id, err := keyOf(source)
	if err != nil {
		return nil, err
	}
	db := a.db.WithContext(ctx)
	if err := requireRow(db, a.relation.Source, id); err != nil {
		return nil, err
	}

	tx, err := a.ordered(db, new(T), order)
	if err != nil {
		return nil, err
	}
	rel := a.relation
	join := fmt.Sprintf("JOIN %s ON %s.%s = %s.%s", rel.Through, rel.Through, rel.OtherKey, rel.Target, domain.KeyColumn)

	var rows []*T
	err = tx.Joins(join).
		Where(clause.Eq{Column: clause.Column{Table: rel.Through, Name: rel.ForeignKey}, Value: id}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of linked rows
func (a *BelongsToMany[S, T]) Count(ctx context.Context, source *S) (int64, error) {
	id, err := keyOf(source)
	if err != nil {
		return 0, err
	}
	db := a.db.WithContext(ctx)
	if err := requireRow(db, a.relation.Source, id); err != nil {
		return 0, err
	}

	var count int64
	err = a.junction(db, id).Count(&count).Error
	return count, err
}

// Add links targets to source. Pairs that already exist are left as they are.
func (a *BelongsToMany[S, T]) Add(ctx context.Context, source *S, targets ...*T) error {
	return a.link(ctx, source, targets, false)
}

// Set makes targets the exact set of rows linked to source
func (a *BelongsToMany[S, T]) Set(ctx context.Context, source *S, targets ...*T) error {
	return a.link(ctx, source, targets, true)
}

func (a *BelongsToMany[S, T]) link(ctx context.Context, source *S, targets []*T, replace bool) error {
	sourceID, err := keyOf(source)
	if err != nil {
		return err
	}
	ids, err := keysOf(targets)
	if err != nil {
		return err
	}

	rel := a.relation
	err = a.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, rel.Source, sourceID); err != nil {
			return err
		}
		if err := requireRows(tx, rel.Target, ids); err != nil {
			return err
		}

		if replace {
			stale := tx.Where(clause.Eq{Column: rel.ForeignKey, Value: sourceID})
			if len(ids) > 0 {
				stale = stale.Where(clause.Not(clause.IN{Column: clause.Column{Name: rel.OtherKey}, Values: toValues(ids)}))
			}
			if err := stale.Delete(domain.NewModel(rel.Through)).Error; err != nil {
				return err
			}
		}
		if len(ids) == 0 {
			return nil
		}

		now := time.Now()
		rows := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, map[string]interface{}{
				rel.ForeignKey: sourceID,
				rel.OtherKey:   id,
				"created_at":   now,
			})
		}
		return tx.Model(domain.NewModel(rel.Through)).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&rows).Error
	})
	if err != nil {
		return err
	}

	a.logger.Debug("Relation linked", zap.Int("source", sourceID), zap.Ints("targets", ids), zap.Bool("replace", replace))
	return nil
}

// Remove deletes the junction rows between source and targets
func (a *BelongsToMany[S, T]) Remove(ctx context.Context, source *S, targets ...*T) error {
	sourceID, err := keyOf(source)
	if err != nil {
		return err
	}
	ids, err := keysOf(targets)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	rel := a.relation
	return a.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, rel.Source, sourceID); err != nil {
			return err
		}
		return tx.Where(clause.Eq{Column: rel.ForeignKey, Value: sourceID}).
			Where(clause.IN{Column: clause.Column{Name: rel.OtherKey}, Values: toValues(ids)}).
			Delete(domain.NewModel(rel.Through)).Error
	})
}

func toValues(ids []int) []interface{} {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return values
}

// Associations groups the typed accessors of every relation in the game
type Associations struct {
	UserDeck    *HasOne[domain.User, domain.Deck]
	DeckUser    *BelongsTo[domain.Deck, domain.User]
	DeckCards   *HasMany[domain.Deck, domain.Card]
	CardDeck    *BelongsTo[domain.Card, domain.Deck]
	CardAttacks *BelongsToMany[domain.Card, domain.Attack]
	AttackCards *BelongsToMany[domain.Attack, domain.Card]
}

// NewAssociations builds every accessor against the relation table
func NewAssociations(db *database.Database, log *logger.Logger) (*Associations, error) {
	var (
		a   Associations
		err error
	)
	if a.UserDeck, err = NewHasOne[domain.User, domain.Deck](db, "Deck", log); err != nil {
		return nil, err
	}
	if a.DeckUser, err = NewBelongsTo[domain.Deck, domain.User](db, "User", log); err != nil {
		return nil, err
	}
	if a.DeckCards, err = NewHasMany[domain.Deck, domain.Card](db, "Cards", log); err != nil {
		return nil, err
	}
	if a.CardDeck, err = NewBelongsTo[domain.Card, domain.Deck](db, "Deck", log); err != nil {
		return nil, err
	}
	if a.CardAttacks, err = NewBelongsToMany[domain.Card, domain.Attack](db, "Attacks", log); err != nil {
		return nil, err
	}
	if a.AttackCards, err = NewBelongsToMany[domain.Attack, domain.Card](db, "Cards", log); err != nil {
		return nil, err
	}
	return &a, nil
}

// AssignDeck makes deck the deck of user
func (a *Associations) AssignDeck(ctx context.Context, user *domain.User, deck *domain.Deck) error {
	return a.UserDeck.Set(ctx, user, deck)
}

// AddCards puts cards into deck
func (a *Associations) AddCards(ctx context.Context, deck *domain.Deck, cards ...*domain.Card) error {
	return a.DeckCards.Add(ctx, deck, cards...)
}

// AddAttacks teaches card the given attacks
func (a *Associations) AddAttacks(ctx context.Context, card *domain.Card, attacks ...*domain.Attack) error {
	return a.CardAttacks.Add(ctx, card, attacks...)
}

var _ domain.DeckBuilder = (*Associations)(nil)
