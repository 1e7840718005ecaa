package domain

import (
	"math/rand"
	"testing"
)

func TestAddAndRemovePlayer(t *testing.T) {
	b := NewBattle("r1", nil)
	b.AddPlayer(&Player{UserID: "x"})
	b.AddPlayer(&Player{UserID: "y"})

	if !b.IsFull() {
		t.Fatal("battle with two players should be full")
	}
	if got := b.CurrentTurnID(); got != "x" {
		t.Fatalf("current turn = %q, want x", got)
	}
	if opp := b.Opponent("x"); opp == nil || opp.UserID != "y" {
		t.Fatalf("opponent of x = %v, want y", opp)
	}

	b.RemovePlayer("y")
	if b.IsFull() {
		t.Fatal("battle should not be full after removal")
	}
	if b.Player("y") != nil {
		t.Fatal("removed player state should be destroyed")
	}
	if got := b.CurrentTurnID(); got != "x" {
		t.Fatalf("current turn after removal = %q, want x", got)
	}
}

func TestRemoveCurrentTurnPlayerFixesIndex(t *testing.T) {
	b := NewBattle("r1", nil)
	b.AddPlayer(&Player{UserID: "x"})
	b.AddPlayer(&Player{UserID: "y"})
	b.TurnIndex = 1

	b.RemovePlayer("y")
	if got := b.CurrentTurnID(); got != "x" {
		t.Fatalf("current turn = %q, want x", got)
	}
}

func TestDrawConsumesDeckFront(t *testing.T) {
	a := &CardDefinition{Name: "a"}
	c := &CardDefinition{Name: "b"}
	b := NewBattle("r1", []*CardDefinition{a, c})

	card, ok := b.Draw()
	if !ok || card.Name != "a" {
		t.Fatalf("draw = %v, %v; want card a", card, ok)
	}
	if len(b.Deck) != 1 {
		t.Fatalf("deck size = %d, want 1", len(b.Deck))
	}

	b.Draw()
	if _, ok := b.Draw(); ok {
		t.Fatal("draw from empty deck should report not ok")
	}
}

func TestTakeCardRemovesFirstInstanceOnly(t *testing.T) {
	fire := &CardDefinition{Name: "fireball"}
	p := &Player{Hand: []*CardDefinition{fire, fire, {Name: "guard"}}}

	card, ok := p.TakeCard("fireball")
	if !ok || card.Name != "fireball" {
		t.Fatalf("take = %v, %v", card, ok)
	}
	if len(p.Hand) != 2 {
		t.Fatalf("hand size = %d, want 2", len(p.Hand))
	}
	if !p.HasCard("fireball") {
		t.Fatal("second duplicate should remain in hand")
	}

	if _, ok := p.TakeCard("missing"); ok {
		t.Fatal("taking an absent card should report not ok")
	}
}

func TestGainHealthClampsToMax(t *testing.T) {
	p := &Player{Health: 18}
	p.GainHealth(6, 20)
	if p.Health != 20 {
		t.Fatalf("health = %d, want 20", p.Health)
	}
}

func TestRegenerateCostCapped(t *testing.T) {
	p := &Player{Cost: 4}
	if !p.RegenerateCost(5) {
		t.Fatal("expected regeneration below cap")
	}
	if p.RegenerateCost(5) {
		t.Fatal("expected no regeneration at cap")
	}
	if p.Cost != 5 {
		t.Fatalf("cost = %d, want 5", p.Cost)
	}
}

func TestBuildDeckShufflesCopy(t *testing.T) {
	catalog := make(Catalog, 0, 20)
	for i := 0; i < 20; i++ {
		catalog = append(catalog, &CardDefinition{Name: string(rune('a' + i))})
	}

	rng := rand.New(rand.NewSource(7))
	deck := BuildDeck(catalog, rng)
	if len(deck) != len(catalog) {
		t.Fatalf("deck size = %d, want %d", len(deck), len(catalog))
	}

	// The catalog's own ordering must be untouched.
	for i, card := range catalog {
		if card.Name != string(rune('a'+i)) {
			t.Fatalf("catalog order mutated at %d: %s", i, card.Name)
		}
	}

	sameOrder := true
	for i := range deck {
		if deck[i] != catalog[i] {
			sameOrder = false
			break
		}
	}
	if sameOrder {
		t.Fatal("deck order matches catalog order; expected a shuffle")
	}
}
