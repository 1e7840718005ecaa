package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"cardbattle/internal/app"
	"cardbattle/internal/bot"
	"cardbattle/internal/domain"
	"cardbattle/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcastCount int
	labelUpdates   int
	lastOpCode     int64
	lastData       []byte
	lastRecipients []runtime.Presence
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcastCount++
	md.lastOpCode = opCode
	md.lastData = append([]byte(nil), data...)
	md.lastRecipients = presences
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	return nil
}

// mockPresence is a minimal runtime.Presence for targeted-message assertions.
type mockPresence struct {
	userID   string
	username string
}

func (mp mockPresence) GetUserId() string                 { return mp.userID }
func (mp mockPresence) GetSessionId() string              { return "session-" + mp.userID }
func (mp mockPresence) GetNodeId() string                 { return "node" }
func (mp mockPresence) GetHidden() bool                   { return false }
func (mp mockPresence) GetPersistence() bool              { return false }
func (mp mockPresence) GetUsername() string               { return mp.username }
func (mp mockPresence) GetStatus() string                 { return "" }
func (mp mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonJoin }

type mockEconomy struct {
	updates []ports.WalletUpdate
}

func (me *mockEconomy) GetBalance(ctx context.Context, userID string) (int64, error) {
	return 0, errors.New("balance not found")
}

func (me *mockEconomy) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	me.updates = append(me.updates, updates...)
	return nil
}

func testRules() app.Rules {
	return app.Rules{MaxHP: 20, HandSize: 5, MaxCost: 5, BaseEvasion: 0}
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		{Name: "fireball", DisplayName: "Fireball", Damage: 3, Cost: 1, Multiplier: 1},
		{Name: "heal", DisplayName: "Minor Heal", Heal: 3, Cost: 1, Multiplier: 1},
		{Name: "guard", DisplayName: "Guard", Shield: 5, Cost: 1, Multiplier: 1},
		{Name: "bolt", DisplayName: "Bolt", Damage: 5, Cost: 2, Multiplier: 1},
		{Name: "arrow", DisplayName: "Arrow", Damage: 4, Cost: 2, Multiplier: 1},
		{Name: "jab", DisplayName: "Jab", Damage: 1, Cost: 1, Multiplier: 1},
		{Name: "mend", DisplayName: "Mend", Heal: 2, Cost: 1, Multiplier: 1},
		{Name: "wall", DisplayName: "Wall", Shield: 8, Cost: 3, Multiplier: 1},
		{Name: "spark", DisplayName: "Spark", Damage: 2, Cost: 1, Multiplier: 1},
		{Name: "salve", DisplayName: "Salve", Heal: 1, Cost: 1, Multiplier: 1},
		{Name: "pike", DisplayName: "Pike", Damage: 3, Cost: 2, Multiplier: 1},
		{Name: "brace", DisplayName: "Brace", Shield: 3, Cost: 1, Multiplier: 1},
	}
}

func newTestState(seed int64) *MatchState {
	svc := app.NewService(rand.New(rand.NewSource(seed)), testRules())
	return &MatchState{
		RoomID:    "r1",
		Presences: make(map[string]runtime.Presence),
		App:       svc,
		Battle:    svc.NewBattle("r1", testCatalog()),
		Bots:      make(map[string]*bot.Agent),
	}
}

func TestMatchLabelMarshal(t *testing.T) {
	state := newTestState(1)

	b, err := json.Marshal(labelFor(state))
	if err != nil {
		t.Fatalf("marshal label: %v", err)
	}
	want := `{"game":"cardbattle","room_id":"r1","open":2,"phase":"lobby"}`
	if string(b) != want {
		t.Fatalf("label = %s, want %s", b, want)
	}

	if _, err := state.App.Join(state.Battle, "u1", "U1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := state.App.Join(state.Battle, "u2", "U2"); err != nil {
		t.Fatalf("join: %v", err)
	}

	label := labelFor(state)
	if label.Open != 0 || label.Phase != "playing" {
		t.Fatalf("label after fill = %+v", label)
	}
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{app.ErrRoomFull, ErrCodeRoomFull},
		{app.ErrNotYourTurn, ErrCodeNotYourTurn},
		{app.ErrInvalidCard, ErrCodeInvalidCard},
		{app.ErrNoCosts, ErrCodeNoCosts},
		{app.ErrNotPlaying, ErrCodeNotPlaying},
		{errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		if got := errorCodeFor(tt.err); got != tt.want {
			t.Fatalf("errorCodeFor(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestOpcodeForCoversAllEventKinds(t *testing.T) {
	kinds := []app.EventKind{
		app.EventMessage, app.EventPlayerMessage, app.EventStateUpdate,
		app.EventHandUpdate, app.EventCostUpdate, app.EventYourTurn,
		app.EventCardPlayed, app.EventGameOver, app.EventPlayerJoined,
		app.EventPlayerLeft,
	}
	seen := make(map[int64]bool)
	for _, kind := range kinds {
		op, ok := opcodeFor(kind)
		if !ok {
			t.Fatalf("no opcode for event kind %q", kind)
		}
		if seen[op] {
			t.Fatalf("opcode %d mapped twice", op)
		}
		seen[op] = true
	}
	if _, ok := opcodeFor(app.EventKind("bogus")); ok {
		t.Fatal("unknown kind must not map")
	}
}

func TestBroadcastEventTargetsRecipients(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(1)
	state.Presences["u1"] = mockPresence{userID: "u1", username: "U1"}
	state.Presences["u2"] = mockPresence{userID: "u2", username: "U2"}

	handler.broadcastEvent(context.Background(), state, dispatcher, noopLogger{}, app.Event{
		Kind:       app.EventPlayerMessage,
		Payload:    app.MessagePayload{Text: "hello"},
		Recipients: []string{"u1"},
	})

	if dispatcher.broadcastCount != 1 {
		t.Fatalf("broadcasts = %d, want 1", dispatcher.broadcastCount)
	}
	if dispatcher.lastOpCode != OpPlayerMessage {
		t.Fatalf("opcode = %d, want %d", dispatcher.lastOpCode, OpPlayerMessage)
	}
	if len(dispatcher.lastRecipients) != 1 || dispatcher.lastRecipients[0].GetUserId() != "u1" {
		t.Fatalf("recipients = %v, want just u1", dispatcher.lastRecipients)
	}
}

// Events addressed only to offline users (bots have no presence) must not
// leak to the rest of the room as a broadcast.
func TestBroadcastEventDropsWhenRecipientsOffline(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(1)
	state.Presences["u1"] = mockPresence{userID: "u1", username: "U1"}

	handler.broadcastEvent(context.Background(), state, dispatcher, noopLogger{}, app.Event{
		Kind:       app.EventHandUpdate,
		Payload:    app.HandUpdatePayload{},
		Recipients: []string{"bot-1"},
	})

	if dispatcher.broadcastCount != 0 {
		t.Fatalf("broadcasts = %d, want 0 for offline-only recipients", dispatcher.broadcastCount)
	}
}

func TestSendErrorUnicastsToOffender(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(1)
	state.Presences["u1"] = mockPresence{userID: "u1", username: "U1"}

	handler.sendError(state, dispatcher, noopLogger{}, "u1", ErrCodeNotYourTurn, "not your turn")

	if dispatcher.lastOpCode != OpGameError {
		t.Fatalf("opcode = %d, want %d", dispatcher.lastOpCode, OpGameError)
	}
	var payload gameErrorEvent
	if err := json.Unmarshal(dispatcher.lastData, &payload); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if payload.Code != ErrCodeNotYourTurn {
		t.Fatalf("code = %q, want %q", payload.Code, ErrCodeNotYourTurn)
	}
	if len(dispatcher.lastRecipients) != 1 {
		t.Fatalf("recipients = %d, want 1", len(dispatcher.lastRecipients))
	}
}

func TestMatchJoinAttemptRejectsFullRoom(t *testing.T) {
	handler := &matchHandler{}
	state := newTestState(1)
	if _, err := state.App.Join(state.Battle, "u1", "U1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := state.App.Join(state.Battle, "u2", "U2"); err != nil {
		t.Fatalf("join: %v", err)
	}

	_, allowed, reason := handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 0, state, mockPresence{userID: "u3"}, nil)
	if allowed {
		t.Fatal("third player must be rejected")
	}
	if reason != ErrCodeRoomFull {
		t.Fatalf("reason = %q, want %q", reason, ErrCodeRoomFull)
	}

	// A seated player reconnecting passes.
	_, allowed, _ = handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 0, state, mockPresence{userID: "u1"}, nil)
	if !allowed {
		t.Fatal("seated player reconnect must be allowed")
	}
}

func TestProcessBotsSeatsOpponentForSoloHuman(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(1)
	state.BotAutoFillDelay = 2
	state.LastSinglePlayerTick = 8
	state.Tick = 10
	state.Presences["u1"] = mockPresence{userID: "u1", username: "U1"}
	if _, err := state.App.Join(state.Battle, "u1", "U1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	handler.processBots(context.Background(), state, dispatcher, noopLogger{})

	if !state.Battle.IsFull() {
		t.Fatal("expected a bot to fill the second seat")
	}
	if state.Battle.Phase != domain.PhasePlaying {
		t.Fatalf("phase = %s, want playing after auto-fill", state.Battle.Phase)
	}
	if len(state.Bots) != 1 {
		t.Fatalf("bot agents = %d, want 1", len(state.Bots))
	}
	if state.LastSinglePlayerTick != 0 {
		t.Fatalf("auto-fill timer = %d, want reset", state.LastSinglePlayerTick)
	}
	if dispatcher.broadcastCount == 0 || dispatcher.labelUpdates == 0 {
		t.Fatal("expected join broadcasts and a label update after auto-fill")
	}
}

func TestProcessBotsWaitsOutTheAutoFillDelay(t *testing.T) {
	handler := &matchHandler{}
	state := newTestState(1)
	state.BotAutoFillDelay = 5
	state.Tick = 10
	if _, err := state.App.Join(state.Battle, "u1", "U1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	handler.processBots(context.Background(), state, &mockDispatcher{}, noopLogger{})

	if state.Battle.IsFull() {
		t.Fatal("bot must not be seated before the delay elapses")
	}
	if state.LastSinglePlayerTick != 10 {
		t.Fatalf("auto-fill timer = %d, want started at tick 10", state.LastSinglePlayerTick)
	}
}

func TestProcessBotsActsOnBotTurn(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newTestState(1)

	botID := "bot-1"
	if _, err := state.App.Join(state.Battle, botID, "Bot"); err != nil {
		t.Fatalf("join bot: %v", err)
	}
	state.Presences["u1"] = mockPresence{userID: "u1", username: "U1"}
	if _, err := state.App.Join(state.Battle, "u1", "U1"); err != nil {
		t.Fatalf("join human: %v", err)
	}
	// Pin the bot's hand so the move cannot bounce the turn back.
	state.Battle.Players[botID].Hand = []*domain.CardDefinition{
		{Name: "fireball", DisplayName: "Fireball", Damage: 3, Cost: 1, Multiplier: 1},
	}
	state.Battle.Deck = nil

	state.Tick = 5
	state.BotWaitUntil = 5 // delay already served

	handler.processBots(context.Background(), state, dispatcher, noopLogger{})

	if got := state.Battle.CurrentTurnID(); got != "u1" {
		t.Fatalf("turn after bot move = %q, want u1", got)
	}
	if dispatcher.broadcastCount == 0 {
		t.Fatal("expected the bot's play to be broadcast")
	}
	if state.BotWaitUntil != 0 {
		t.Fatalf("bot wait = %d, want reset", state.BotWaitUntil)
	}
}

func TestSettleStakesSkipsBots(t *testing.T) {
	handler := &matchHandler{}
	economy := &mockEconomy{}
	state := newTestState(1)
	state.Economy = economy
	if _, err := state.App.Join(state.Battle, "u1", "U1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := state.App.Join(state.Battle, "bot-1", "Bot"); err != nil {
		t.Fatalf("join bot: %v", err)
	}

	handler.settleStakes(context.Background(), state, noopLogger{}, app.GameOverPayload{
		WinnerID:   "u1",
		WinnerName: "U1",
	})

	if len(economy.updates) != 1 {
		t.Fatalf("wallet updates = %d, want 1 (bot skipped)", len(economy.updates))
	}
	update := economy.updates[0]
	if update.UserID != "u1" || update.Amount <= 0 {
		t.Fatalf("update = %+v, want positive credit for u1", update)
	}
}
