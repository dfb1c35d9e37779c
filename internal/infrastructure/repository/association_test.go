package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(cards []*domain.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Name)
	}
	return out
}

func titles(attacks []*domain.Attack) []string {
	out := make([]string, 0, len(attacks))
	for _, a := range attacks {
		out = append(out, a.Title)
	}
	return out
}

func TestAssignDeckIsVisibleFromBothSides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := s.mustUser(t, "gandalf")
	deck := s.mustDeck(t, "Magic Deck", 0)

	require.NoError(t, s.assoc.AssignDeck(ctx, user, deck))
	require.NotNil(t, deck.UserID)
	assert.Equal(t, user.ID, *deck.UserID)

	owned, err := s.assoc.UserDeck.Get(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, owned)
	assert.Equal(t, deck.ID, owned.ID)

	owner, err := s.assoc.DeckUser.Get(ctx, deck)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, user.ID, owner.ID)
}

func TestAssignDeckReplacesPreviousDeck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := s.mustUser(t, "gandalf")
	first := s.mustDeck(t, "First Deck", 0)
	second := s.mustDeck(t, "Second Deck", 0)

	require.NoError(t, s.assoc.AssignDeck(ctx, user, first))
	require.NoError(t, s.assoc.AssignDeck(ctx, user, second))

	owned, err := s.assoc.UserDeck.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, second.ID, owned.ID)

	owner, err := s.assoc.DeckUser.Get(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, owner)

	require.NoError(t, s.assoc.UserDeck.Set(ctx, user, nil))
	owned, err = s.assoc.UserDeck.Get(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, owned)
}

func TestDeckUserSetMovesOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := s.mustUser(t, "gandalf")
	first := s.mustDeck(t, "First Deck", 0)
	second := s.mustDeck(t, "Second Deck", 0)

	require.NoError(t, s.assoc.DeckUser.Set(ctx, first, user))
	require.NoError(t, s.assoc.DeckUser.Set(ctx, second, user))

	assert.Equal(t, user.ID, *second.UserID)

	owner, err := s.assoc.DeckUser.Get(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, owner)

	count, err := s.decks.Count(ctx, domain.Where(domain.Eq("userId", user.ID)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAddCardsKeepsKeyOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck := s.mustDeck(t, "Magic Deck", 0)
	fireball := s.mustCard(t, "Fireball", 20, 15)
	shield := s.mustCard(t, "Shield", 10, 25)

	require.NoError(t, s.assoc.AddCards(ctx, deck, shield, fireball))
	assert.Equal(t, deck.ID, *fireball.DeckID)
	assert.Equal(t, deck.ID, *shield.DeckID)

	cards, err := s.assoc.DeckCards.Get(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fireball", "Shield"}, names(cards))

	cards, err = s.assoc.DeckCards.Get(ctx, deck, domain.Desc("mojo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Fireball", "Shield"}, names(cards))

	count, err := s.assoc.DeckCards.Count(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	owner, err := s.assoc.CardDeck.Get(ctx, shield)
	require.NoError(t, err)
	assert.Equal(t, deck.ID, owner.ID)
}

func TestDeckCardsRemoveAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck := s.mustDeck(t, "Magic Deck", 0)
	fireball := s.mustCard(t, "Fireball", 20, 15)
	shield := s.mustCard(t, "Shield", 10, 25)
	pebble := s.mustCard(t, "Pebble", 0, 0)

	require.NoError(t, s.assoc.DeckCards.Add(ctx, deck, fireball, shield))
	require.NoError(t, s.assoc.DeckCards.Remove(ctx, deck, fireball))
	assert.Nil(t, fireball.DeckID)

	cards, err := s.assoc.DeckCards.Get(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shield"}, names(cards))

	require.NoError(t, s.assoc.DeckCards.Set(ctx, deck, pebble))
	cards, err = s.assoc.DeckCards.Get(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pebble"}, names(cards))

	require.NoError(t, s.assoc.CardDeck.Set(ctx, shield, deck))
	require.NoError(t, s.assoc.CardDeck.Set(ctx, pebble, nil))
	assert.Nil(t, pebble.DeckID)

	cards, err = s.assoc.DeckCards.Get(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shield"}, names(cards))
}

func TestCardAttacksAreSymmetric(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fireball := s.mustCard(t, "Fireball", 20, 15)
	shield := s.mustCard(t, "Shield", 10, 25)
	flameBurst := s.mustAttack(t, "Flame Burst", 15, 10)
	defend := s.mustAttack(t, "Defend", 5, 20)

	require.NoError(t, s.assoc.AddAttacks(ctx, fireball, flameBurst, defend))
	require.NoError(t, s.assoc.AddAttacks(ctx, shield, flameBurst))

	attacks, err := s.assoc.CardAttacks.Get(ctx, fireball)
	require.NoError(t, err)
	assert.Equal(t, []string{"Flame Burst", "Defend"}, titles(attacks))

	cards, err := s.assoc.AttackCards.Get(ctx, flameBurst)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fireball", "Shield"}, names(cards))

	cards, err = s.assoc.AttackCards.Get(ctx, defend)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fireball"}, names(cards))

	attacks, err = s.assoc.CardAttacks.Get(ctx, fireball, domain.Asc("title"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Defend", "Flame Burst"}, titles(attacks))
}

func TestDuplicateAttackLinkIsIgnored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fireball := s.mustCard(t, "Fireball", 20, 15)
	flameBurst := s.mustAttack(t, "Flame Burst", 15, 10)

	require.NoError(t, s.assoc.AddAttacks(ctx, fireball, flameBurst))
	require.NoError(t, s.assoc.AddAttacks(ctx, fireball, flameBurst, flameBurst))
	require.NoError(t, s.assoc.AttackCards.Add(ctx, flameBurst, fireball))

	count, err := s.assoc.CardAttacks.Count(ctx, fireball)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCardAttacksRemoveAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fireball := s.mustCard(t, "Fireball", 20, 15)
	flameBurst := s.mustAttack(t, "Flame Burst", 15, 10)
	defend := s.mustAttack(t, "Defend", 5, 20)

	require.NoError(t, s.assoc.AddAttacks(ctx, fireball, flameBurst, defend))
	require.NoError(t, s.assoc.CardAttacks.Remove(ctx, fireball, flameBurst))

	attacks, err := s.assoc.CardAttacks.Get(ctx, fireball)
	require.NoError(t, err)
	assert.Equal(t, []string{"Defend"}, titles(attacks))

	require.NoError(t, s.assoc.CardAttacks.Set(ctx, fireball, flameBurst))
	attacks, err = s.assoc.CardAttacks.Get(ctx, fireball)
	require.NoError(t, err)
	assert.Equal(t, []string{"Flame Burst"}, titles(attacks))

	require.NoError(t, s.assoc.CardAttacks.Set(ctx, fireball))
	count, err := s.assoc.CardAttacks.Count(ctx, fireball)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEagerLoading(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := s.mustUser(t, "gandalf")
	deck := s.mustDeck(t, "Magic Deck", 0)
	fireball := s.mustCard(t, "Fireball", 20, 15)
	shield := s.mustCard(t, "Shield", 10, 25)
	firewall := s.mustCard(t, "Firewall", 5, 30)
	flameBurst := s.mustAttack(t, "Flame Burst", 15, 10)
	defend := s.mustAttack(t, "Defend", 5, 20)

	require.NoError(t, s.assoc.AssignDeck(ctx, user, deck))
	require.NoError(t, s.assoc.AddCards(ctx, deck, fireball, shield))
	require.NoError(t, s.assoc.AddAttacks(ctx, fireball, flameBurst, defend))
	require.NoError(t, s.assoc.AddAttacks(ctx, shield, flameBurst))
	require.NoError(t, s.assoc.AddAttacks(ctx, firewall, defend))

	t.Run("User_With_Deck", func(t *testing.T) {
		found, err := s.users.MustFind(ctx, domain.Where(domain.Eq("username", "gandalf")).With("Deck"))
		require.NoError(t, err)
		require.NotNil(t, found.Deck)
		assert.Equal(t, "Magic Deck", found.Deck.Name)
	})

	t.Run("Deck_With_Cards", func(t *testing.T) {
		found, err := s.decks.MustFind(ctx, domain.Where(domain.Eq("name", "Magic Deck")).With("Cards"))
		require.NoError(t, err)
		require.Len(t, found.Cards, 2)
		assert.Equal(t, "Fireball", found.Cards[0].Name)
		assert.Equal(t, "Shield", found.Cards[1].Name)
	})

	t.Run("Cards_By_Prefix_With_Attacks", func(t *testing.T) {
		cards, err := s.cards.FindAll(ctx, domain.Where(domain.StartsWith("name", "Fire")).
			OrderBy(domain.Asc("name")).
			With("Attacks"))
		require.NoError(t, err)
		require.Equal(t, []string{"Fireball", "Firewall"}, names(cards))

		require.Len(t, cards[0].Attacks, 2)
		assert.Equal(t, "Flame Burst", cards[0].Attacks[0].Title)
		assert.Equal(t, "Defend", cards[0].Attacks[1].Title)
		require.Len(t, cards[1].Attacks, 1)
		assert.Equal(t, "Defend", cards[1].Attacks[0].Title)
	})

	t.Run("Nested_Chain", func(t *testing.T) {
		found, err := s.users.MustFind(ctx, domain.Where(domain.Eq("id", user.ID)).
			With("Deck.Cards.Attacks", domain.Asc("title")))
		require.NoError(t, err)
		require.NotNil(t, found.Deck)
		require.Len(t, found.Deck.Cards, 2)
		fire := found.Deck.Cards[0]
		assert.Equal(t, "Fireball", fire.Name)
		require.Len(t, fire.Attacks, 2)
		assert.Equal(t, "Defend", fire.Attacks[0].Title)
		assert.Equal(t, "Flame Burst", fire.Attacks[1].Title)
	})

	t.Run("Included_Order", func(t *testing.T) {
		found, err := s.decks.MustFind(ctx, domain.Query{}.With("Cards", domain.Desc("name")))
		require.NoError(t, err)
		require.Len(t, found.Cards, 2)
		assert.Equal(t, "Shield", found.Cards[0].Name)
	})

	t.Run("Back_To_Owner", func(t *testing.T) {
		card, err := s.cards.MustFind(ctx, domain.Where(domain.Eq("name", "Shield")).With("Deck.User"))
		require.NoError(t, err)
		require.NotNil(t, card.Deck)
		require.NotNil(t, card.Deck.User)
		assert.Equal(t, "gandalf", card.Deck.User.Username)
	})
}

func TestDeleteCardCascadesToJunction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fireball := s.mustCard(t, "Fireball", 20, 15)
	shield := s.mustCard(t, "Shield", 10, 25)
	flameBurst := s.mustAttack(t, "Flame Burst", 15, 10)

	require.NoError(t, s.assoc.AddAttacks(ctx, fireball, flameBurst))
	require.NoError(t, s.assoc.AddAttacks(ctx, shield, flameBurst))
	require.NoError(t, s.cards.Delete(ctx, fireball))

	cards, err := s.assoc.AttackCards.Get(ctx, flameBurst)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shield"}, names(cards))

	var links int64
	require.NoError(t, s.db.GetDB().Model(&domain.CardAttack{}).Count(&links).Error)
	assert.Equal(t, int64(1), links)

	require.NoError(t, s.attacks.Delete(ctx, flameBurst))
	require.NoError(t, s.db.GetDB().Model(&domain.CardAttack{}).Count(&links).Error)
	assert.Zero(t, links)
}

func TestDeleteOwnerDetachesDependents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := s.mustUser(t, "gandalf")
	deck := s.mustDeck(t, "Magic Deck", 0)
	card := s.mustCard(t, "Fireball", 20, 15)

	require.NoError(t, s.assoc.AssignDeck(ctx, user, deck))
	require.NoError(t, s.assoc.AddCards(ctx, deck, card))

	require.NoError(t, s.users.Delete(ctx, user))
	stored, err := s.decks.GetByID(ctx, deck.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.UserID)

	require.NoError(t, s.decks.Delete(ctx, deck))
	storedCard, err := s.cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	require.NotNil(t, storedCard)
	assert.Nil(t, storedCard.DeckID)
}

func TestAccessorsRejectUnusableInstances(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deck := s.mustDeck(t, "Magic Deck", 0)
	card := s.mustCard(t, "Fireball", 20, 15)
	unsaved := &domain.Card{Name: "Unsaved"}

	var stateErr *domain.InvalidStateError

	err := s.assoc.AddCards(ctx, deck, unsaved)
	require.True(t, errors.As(err, &stateErr), "got %v", err)
	assert.Equal(t, domain.StateUnpersisted, stateErr.State)

	_, err = s.assoc.UserDeck.Get(ctx, &domain.User{Username: "ghost"})
	require.True(t, errors.As(err, &stateErr), "got %v", err)
	assert.Equal(t, domain.StateUnpersisted, stateErr.State)

	require.NoError(t, s.cards.Delete(ctx, card))

	err = s.assoc.AddCards(ctx, deck, card)
	require.True(t, errors.As(err, &stateErr), "got %v", err)
	assert.Equal(t, domain.StateDeleted, stateErr.State)
	assert.Equal(t, card.ID, stateErr.ID)

	_, err = s.assoc.CardDeck.Get(ctx, card)
	require.True(t, errors.As(err, &stateErr), "got %v", err)
	assert.Equal(t, domain.StateDeleted, stateErr.State)

	_, err = s.assoc.CardAttacks.Get(ctx, card)
	assert.Equal(t, domain.ErrCodeInvalidState, domain.Code(err))

	count, err := s.assoc.DeckCards.Count(ctx, deck)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMismatchedAccessorsFail(t *testing.T) {
	s := newTestStore(t)
	log := logger.NewNop()

	tests := []struct {
		name  string
		build func() error
	}{
		{"Wrong_Target", func() error {
			_, err := NewHasOne[domain.User, domain.Card](s.db, "Deck", log)
			return err
		}},
		{"Wrong_Kind", func() error {
			_, err := NewHasMany[domain.User, domain.Deck](s.db, "Deck", log)
			return err
		}},
		{"Wrong_Direction", func() error {
			_, err := NewBelongsTo[domain.Deck, domain.Card](s.db, "Cards", log)
			return err
		}},
		{"Unknown_Name", func() error {
			_, err := NewBelongsToMany[domain.Card, domain.Attack](s.db, "Moves", log)
			return err
		}},
		{"Junction_Wrong_Side", func() error {
			_, err := NewBelongsToMany[domain.Attack, domain.Attack](s.db, "Cards", log)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			var relErr *domain.RelationError
			require.True(t, errors.As(err, &relErr), "got %v", err)
			assert.Equal(t, domain.ErrCodeRelation, domain.Code(err))
		})
	}
}
