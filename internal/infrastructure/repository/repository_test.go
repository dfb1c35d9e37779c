package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/saradorri/cardgame/internal/infrastructure/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStore struct {
	db      *database.Database
	users   domain.UserRepository
	decks   domain.DeckRepository
	cards   domain.CardRepository
	attacks domain.AttackRepository
	assoc   *Associations
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	log := logger.NewNop()
	db, err := database.NewDatabase(&database.Config{
		Driver:       database.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "cardgame.sqlite"),
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
		LockTimeout:  5 * time.Second,
		AllowReset:   true,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Sync(context.Background(), database.SyncOptions{Force: true}))

	validator := validation.New()
	assoc, err := NewAssociations(db, log)
	require.NoError(t, err)

	return &testStore{
		db:      db,
		users:   NewUserRepository(db, validator, log),
		decks:   NewDeckRepository(db, validator, log),
		cards:   NewCardRepository(db, validator, log),
		attacks: NewAttackRepository(db, validator, log),
		assoc:   assoc,
	}
}

func intPtr(v int) *int {
	return &v
}

func (s *testStore) mustUser(t *testing.T, username string) *domain.User {
	t.Helper()
	user, err := s.users.Create(context.Background(), domain.CreateUserInput{Username: username})
	require.NoError(t, err)
	return user
}

func (s *testStore) mustDeck(t *testing.T, name string, xp int) *domain.Deck {
	t.Helper()
	deck, err := s.decks.Create(context.Background(), domain.CreateDeckInput{Name: name, XP: intPtr(xp)})
	require.NoError(t, err)
	return deck
}

func (s *testStore) mustCard(t *testing.T, name string, mojo, stamina int) *domain.Card {
	t.Helper()
	card, err := s.cards.Create(context.Background(), domain.CreateCardInput{
		Name:    name,
		Mojo:    intPtr(mojo),
		Stamina: intPtr(stamina),
		ImgURL:  fmt.Sprintf("http://example.com/%s.jpg", name),
	})
	require.NoError(t, err)
	return card
}

func (s *testStore) mustAttack(t *testing.T, title string, mojoCost, staminaCost int) *domain.Attack {
	t.Helper()
	attack, err := s.attacks.Create(context.Background(), domain.CreateAttackInput{
		Title:       title,
		MojoCost:    intPtr(mojoCost),
		StaminaCost: intPtr(staminaCost),
	})
	require.NoError(t, err)
	return attack
}

func TestCreateAssignsKeysAndTimestamps(t *testing.T) {
	s := newTestStore(t)

	user := s.mustUser(t, "gandalf")
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.False(t, user.UpdatedAt.IsZero())

	deck, err := s.decks.Create(context.Background(), domain.CreateDeckInput{Name: "Zero XP Deck"})
	require.NoError(t, err)
	assert.Equal(t, 0, deck.XP)
	assert.Nil(t, deck.UserID)

	stored, err := s.decks.GetByID(context.Background(), deck.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Zero XP Deck", stored.Name)
	assert.Equal(t, 0, stored.XP)
}

func TestCreateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		create func() error
		entity string
		fields []string
	}{
		{
			name: "Card_Missing_Stats",
			create: func() error {
				_, err := s.cards.Create(ctx, domain.CreateCardInput{Name: "Incomplete Card"})
				return err
			},
			entity: "Card",
			fields: []string{"mojo", "stamina", "imgUrl"},
		},
		{
			name: "Attack_Missing_Costs",
			create: func() error {
				_, err := s.attacks.Create(ctx, domain.CreateAttackInput{Title: "Incomplete Attack"})
				return err
			},
			entity: "Attack",
			fields: []string{"mojoCost", "staminaCost"},
		},
		{
			name: "User_Empty_Username",
			create: func() error {
				_, err := s.users.Create(ctx, domain.CreateUserInput{})
				return err
			},
			entity: "User",
			fields: []string{"username"},
		},
		{
			name: "Deck_Missing_Name",
			create: func() error {
				_, err := s.decks.Create(ctx, domain.CreateDeckInput{XP: intPtr(100)})
				return err
			},
			entity: "Deck",
			fields: []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.create()

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.entity, verr.Entity)
			assert.Equal(t, tt.fields, verr.Fields())
		})
	}

	for _, repo := range []func() (int64, error){
		func() (int64, error) { return s.cards.Count(ctx, domain.Query{}) },
		func() (int64, error) { return s.attacks.Count(ctx, domain.Query{}) },
		func() (int64, error) { return s.users.Count(ctx, domain.Query{}) },
		func() (int64, error) { return s.decks.Count(ctx, domain.Query{}) },
	} {
		count, err := repo()
		require.NoError(t, err)
		assert.Zero(t, count)
	}
}

func TestDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	s.mustUser(t, "gandalf")

	_, err := s.users.Create(context.Background(), domain.CreateUserInput{Username: "gandalf"})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.True(t, verr.Has("username", domain.ReasonDuplicate))
}

func TestConcurrentDuplicateUsernamesKeepOneRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.users.Create(ctx, domain.CreateUserInput{Username: "sauron"}); err != nil {
				mu.Lock()
				failed = append(failed, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	count, err := s.users.Count(ctx, domain.Where(domain.Eq("username", "sauron")))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.Len(t, failed, writers-1)
	for _, err := range failed {
		code := domain.Code(err)
		assert.Contains(t, []string{domain.ErrCodeValidation, domain.ErrCodeIntegrity}, code, err.Error())
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck := s.mustDeck(t, "Magic Deck", 10)
	createdAt := deck.CreatedAt

	deck.XP = 0
	deck.Name = "Renamed Deck"
	require.NoError(t, s.decks.Update(ctx, deck))

	stored, err := s.decks.GetByID(ctx, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Deck", stored.Name)
	assert.Equal(t, 0, stored.XP)
	assert.WithinDuration(t, createdAt, stored.CreatedAt, time.Second)

	deck.Name = ""
	err = s.decks.Update(ctx, deck)
	assert.Equal(t, domain.ErrCodeValidation, domain.Code(err))

	err = s.decks.Update(ctx, &domain.Deck{Name: "Keyless"})
	assert.Equal(t, domain.ErrCodeInvalidState, domain.Code(err))
}

func TestUpdateRejectsTakenUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.mustUser(t, "gandalf")
	frodo := s.mustUser(t, "frodo")

	frodo.Username = "gandalf"
	err := s.users.Update(ctx, frodo)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.True(t, verr.Has("username", domain.ReasonDuplicate))

	frodo.Username = "frodo"
	assert.NoError(t, s.users.Update(ctx, frodo))
}

func TestFindAndMustFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.mustCard(t, "Fireball", 20, 15)
	s.mustCard(t, "Firewall", 5, 30)
	s.mustCard(t, "Shield", 10, 25)

	card, err := s.cards.Find(ctx, domain.Where(domain.StartsWith("name", "Fire")).OrderBy(domain.Desc("name")))
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "Firewall", card.Name)

	cards, err := s.cards.FindAll(ctx, domain.Where(domain.Eq("imgUrl", "http://example.com/Shield.jpg")))
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Shield", cards[0].Name)

	missing, err := s.cards.Find(ctx, domain.Where(domain.Eq("name", "Nope")))
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.cards.MustFind(ctx, domain.Where(domain.Eq("name", "Nope")))
	var notFound *domain.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Card", notFound.Entity)
	assert.Equal(t, "name = Nope", notFound.Criteria)

	page, err := s.cards.FindAll(ctx, domain.Query{}.OrderBy(domain.Asc("Mojo")).Paginate(2, 1))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Shield", page[0].Name)
	assert.Equal(t, "Fireball", page[1].Name)
}

func TestLikeHelpersMatchWildcardsLiterally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"fire_ball", "fireXball", "100% shield", "1000 shield", `back\slash`, "backslash"} {
		s.mustCard(t, name, 10, 10)
	}

	names := func(cards []*domain.Card) []string {
		out := make([]string, 0, len(cards))
		for _, c := range cards {
			out = append(out, c.Name)
		}
		return out
	}

	tests := []struct {
		name string
		cond domain.Condition
		want []string
	}{
		{"StartsWith_Underscore", domain.StartsWith("name", "fire_"), []string{"fire_ball"}},
		{"Contains_Percent", domain.Contains("name", "100%"), []string{"100% shield"}},
		{"Contains_Backslash", domain.Contains("name", `k\s`), []string{`back\slash`}},
		{"Raw_Like_Keeps_Wildcards", domain.Like("name", "fire_ball"), []string{"fire_ball", "fireXball"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := s.cards.FindAll(ctx, domain.Where(tt.cond))
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(cards))
		})
	}
}

func TestUpdateRejectsMissingReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	card := s.mustCard(t, "Fireball", 20, 15)
	card.DeckID = intPtr(404)
	err := s.cards.Update(ctx, card)

	var integrityErr *domain.IntegrityError
	require.True(t, errors.As(err, &integrityErr), "got %v", err)
	assert.Equal(t, domain.ConstraintForeignKey, integrityErr.Kind)
	assert.Equal(t, "cards.deck_id", integrityErr.Constraint)

	deck := s.mustDeck(t, "Magic Deck", 0)
	deck.UserID = intPtr(404)
	err = s.decks.Update(ctx, deck)
	require.True(t, errors.As(err, &integrityErr), "got %v", err)
	assert.Equal(t, "decks.user_id", integrityErr.Constraint)

	stored, err := s.cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DeckID)
}

func TestGetByIDMissing(t *testing.T) {
	s := newTestStore(t)

	user, err := s.users.GetByID(context.Background(), 999)
	assert.NoError(t, err)
	assert.Nil(t, user)

	user, err = s.users.GetByUsername(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestInvalidQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query domain.Query
	}{
		{"Unknown_Column", domain.Where(domain.Eq("power", 9000))},
		{"Unknown_Order", domain.Query{}.OrderBy(domain.Asc("power"))},
		{"Unknown_Relation", domain.Query{}.With("Weapons")},
		{"Unknown_Nested_Relation", domain.Query{}.With("Deck.Weapons")},
		{"Relation_Of_Other_Entity", domain.Query{}.With("Attacks")},
		{"Unknown_Include_Order", domain.Query{}.With("Deck", domain.Asc("power"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.users.FindAll(ctx, tt.query)
			assert.ErrorIs(t, err, domain.ErrInvalidQuery)
			assert.Equal(t, domain.ErrCodeInvalidQuery, domain.Code(err))
		})
	}
}

func TestDeleteTwice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	attack := s.mustAttack(t, "Flame Burst", 15, 10)
	require.NoError(t, s.attacks.Delete(ctx, attack))

	err := s.attacks.Delete(ctx, attack)
	var stateErr *domain.InvalidStateError
	require.True(t, errors.As(err, &stateErr), "got %v", err)
	assert.Equal(t, domain.StateDeleted, stateErr.State)
	assert.Equal(t, "Attack", stateErr.Entity)

	err = s.attacks.Delete(ctx, &domain.Attack{Title: "Never Saved"})
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, domain.StateUnpersisted, stateErr.State)
}
