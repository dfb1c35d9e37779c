package repository

import (
	"fmt"
	"strings"

	"github.com/saradorri/cardgame/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

func parseSchema(db *gorm.DB, model interface{}) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
	}
	return stmt.Schema, nil
}

// resolveColumn maps a database column, Go field or JSON name onto a column of s
func resolveColumn(s *schema.Schema, name string) (string, error) {
	if field := s.LookUpField(name); field != nil && field.DBName != "" {
		return field.DBName, nil
	}
	for _, field := range s.Fields {
		if field.DBName == "" {
			continue
		}
		if strings.SplitN(field.Tag.Get("json"), ",", 2)[0] == name {
			return field.DBName, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no column %q", domain.ErrInvalidQuery, domain.EntityName(s.Table), name)
}

// applyFilter adds the WHERE part of q
func applyFilter(db *gorm.DB, s *schema.Schema, q domain.Query) (*gorm.DB, error) {
	for _, cond := range q.Where {
		column, err := resolveColumn(s, cond.Column)
		if err != nil {
			return nil, err
		}
		col := clause.Column{Table: s.Table, Name: column}

		switch cond.Op {
		case domain.OpEq, "":
			db = db.Where(clause.Eq{Column: col, Value: cond.Value})
		case domain.OpLike:
			if cond.Escaped {
				db = db.Where(clause.Expr{SQL: `? LIKE ? ESCAPE '\'`, Vars: []interface{}{col, cond.Value}})
				continue
			}
			db = db.Where(clause.Like{Column: col, Value: cond.Value})
		default:
			return nil, fmt.Errorf("%w: unsupported operator %q", domain.ErrInvalidQuery, cond.Op)
		}
	}
	return db, nil
}

// resolveOrder turns order clauses into columns of s. The key column is
// appended as a tiebreaker so results are deterministic.
func resolveOrder(s *schema.Schema, order []domain.OrderBy) ([]clause.OrderByColumn, error) {
	columns := make([]clause.OrderByColumn, 0, len(order)+1)
	keyed := false
	for _, o := range order {
		column, err := resolveColumn(s, o.Column)
		if err != nil {
			return nil, err
		}
		if column == domain.KeyColumn {
			keyed = true
		}
		columns = append(columns, clause.OrderByColumn{
			Column: clause.Column{Table: s.Table, Name: column},
			Desc:   o.Desc,
		})
	}
	if !keyed {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Table: s.Table, Name: domain.KeyColumn}})
	}
	return columns, nil
}

func applyOrder(db *gorm.DB, columns []clause.OrderByColumn) *gorm.DB {
	for _, c := range columns {
		db = db.Order(c)
	}
	return db
}

// applyQuery adds the filter, order, page and eager loads of q to a
// statement over model
func applyQuery(db *gorm.DB, model interface{}, q domain.Query) (*gorm.DB, error) {
	s, err := parseSchema(db, model)
	if err != nil {
		return nil, err
	}

	db, err = applyFilter(db.Model(model), s, q)
	if err != nil {
		return nil, err
	}

	order, err := resolveOrder(s, q.Order)
	if err != nil {
		return nil, err
	}
	db = applyOrder(db, order)

	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}

	return applyIncludes(db, s.Table, q.Include)
}

type preload struct {
	path  string
	order []clause.OrderByColumn
}

// applyIncludes preloads every link of every include path. Each link runs
// as one extra query ordered by the target key unless the include names an
// order for its last link.
func applyIncludes(db *gorm.DB, table string, includes []domain.Include) (*gorm.DB, error) {
	var preloads []preload
	index := make(map[string]int)

	for _, inc := range includes {
		segments := strings.Split(inc.Path, ".")
		source := table

		for i, segment := range segments {
			rel, ok := domain.LookupRelation(source, segment)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no relation %q", domain.ErrInvalidQuery, domain.EntityName(source), segment)
			}

			path := strings.Join(segments[:i+1], ".")
			last := i == len(segments)-1
			pos, seen := index[path]
			if seen && (!last || len(inc.Order) == 0) {
				source = rel.Target
				continue
			}

			target, err := parseSchema(db, domain.NewModel(rel.Target))
			if err != nil {
				return nil, err
			}
			var order []domain.OrderBy
			if last {
				order = inc.Order
			}
			columns, err := resolveOrder(target, order)
			if err != nil {
				return nil, err
			}

			if seen {
				preloads[pos].order = columns
			} else {
				index[path] = len(preloads)
				preloads = append(preloads, preload{path: path, order: columns})
			}
			source = rel.Target
		}
	}

	for _, p := range preloads {
		order := p.order
		db = db.Preload(p.path, func(tx *gorm.DB) *gorm.DB {
			return applyOrder(tx, order)
		})
	}
	return db, nil
}
