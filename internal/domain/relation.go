package domain

// Table names
const (
	TableUsers       = "users"
	TableDecks       = "decks"
	TableCards       = "cards"
	TableAttacks     = "attacks"
	TableCardAttacks = "card_attacks"

	// KeyColumn is the surrogate key column shared by every entity table
	KeyColumn = "id"
)

// RelationKind is the cardinality of a relation as seen from its source
type RelationKind int

const (
	HasOne RelationKind = iota + 1
	BelongsTo
	HasMany
	BelongsToMany
)

// String returns the kind name
func (k RelationKind) String() string {
	switch k {
	case HasOne:
		return "has one"
	case BelongsTo:
		return "belongs to"
	case HasMany:
		return "has many"
	case BelongsToMany:
		return "belongs to many"
	default:
		return "unknown"
	}
}

// DeletePolicy says what happens to dependent rows when the source row is deleted
type DeletePolicy string

const (
	// OnDeleteNone leaves dependents alone. Used on the non-owning side.
	OnDeleteNone    DeletePolicy = ""
	OnDeleteSetNull DeletePolicy = "SET NULL"
	OnDeleteCascade DeletePolicy = "CASCADE"
)

// Relation describes one direction of an association between two tables.
//
// ForeignKey is the column holding the reference: on the target table for
// HasOne and HasMany, on the source table for BelongsTo, and the junction
// column pointing at the source for BelongsToMany. OtherKey is the junction
// column pointing at the target.
type Relation struct {
	Name       string
	Source     string
	Target     string
	Kind       RelationKind
	ForeignKey string
	Through    string
	OtherKey   string
	Unique     bool
	OnDelete   DeletePolicy
}

// Multi reports whether the relation resolves to a list
func (r Relation) Multi() bool {
	return r.Kind == HasMany || r.Kind == BelongsToMany
}

// Relations is the association graph of the card game
var Relations = []Relation{
	{Name: "Deck", Source: TableUsers, Target: TableDecks, Kind: HasOne, ForeignKey: "user_id", Unique: true, OnDelete: OnDeleteSetNull},
	{Name: "User", Source: TableDecks, Target: TableUsers, Kind: BelongsTo, ForeignKey: "user_id", Unique: true},
	{Name: "Cards", Source: TableDecks, Target: TableCards, Kind: HasMany, ForeignKey: "deck_id", OnDelete: OnDeleteSetNull},
	{Name: "Deck", Source: TableCards, Target: TableDecks, Kind: BelongsTo, ForeignKey: "deck_id"},
	{Name: "Attacks", Source: TableCards, Target: TableAttacks, Kind: BelongsToMany, ForeignKey: "card_id", Through: TableCardAttacks, OtherKey: "attack_id", OnDelete: OnDeleteCascade},
	{Name: "Cards", Source: TableAttacks, Target: TableCards, Kind: BelongsToMany, ForeignKey: "attack_id", Through: TableCardAttacks, OtherKey: "card_id", OnDelete: OnDeleteCascade},
}

// LookupRelation finds the relation with the given name on the source table
func LookupRelation(source, name string) (Relation, bool) {
	for _, r := range Relations {
		if r.Source == source && r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// RelationsFrom returns every relation whose source is the given table
func RelationsFrom(source string) []Relation {
	var out []Relation
	for _, r := range Relations {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out
}

// Inverse returns the relation walking the same link in the other direction
func (r Relation) Inverse() (Relation, bool) {
	for _, other := range Relations {
		if other.Source != r.Target || other.Target != r.Source {
			continue
		}
		if r.Kind == BelongsToMany && other.Kind == BelongsToMany && other.Through == r.Through &&
			other.ForeignKey == r.OtherKey && other.OtherKey == r.ForeignKey {
			return other, true
		}
		if r.Kind != BelongsToMany && other.Kind != BelongsToMany && other.ForeignKey == r.ForeignKey {
			return other, true
		}
	}
	return Relation{}, false
}
