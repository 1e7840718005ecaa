package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"cardbattle/internal/app"
	"cardbattle/internal/bot"
	"cardbattle/internal/config"
	"cardbattle/internal/domain"
	"cardbattle/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// matchLabel is the queryable room descriptor published to the match registry.
// Clients find rooms through the join_room RPC with a label query on room_id.
type matchLabel struct {
	Game   string `json:"game"`
	RoomID string `json:"room_id"`
	Open   int    `json:"open"`
	Phase  string `json:"phase"`
}

// MatchState holds the authoritative runtime state for one battle room.
type MatchState struct {
	RoomID    string                      `json:"room_id"`
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // UserId -> Presence for targeted messaging
	App       *app.Service                `json:"-"`
	Battle    *domain.Battle              `json:"-"`

	BotsEnabled          bool                  `json:"bots_enabled"`
	BotMinDelay          int                   `json:"bot_min_delay"`           // Min seconds a bot waits before acting
	BotMaxDelay          int                   `json:"bot_max_delay"`           // Max seconds a bot waits before acting
	BotAutoFillDelay     int                   `json:"bot_auto_fill_delay"`     // Seconds a solo player waits before a bot is seated
	BotWaitUntil         int64                 `json:"bot_wait_until"`          // Tick when the acting bot moves
	LastSinglePlayerTick int64                 `json:"last_single_player_tick"` // Tick when a single player started waiting
	Bots                 map[string]*bot.Agent `json:"-"`

	Economy ports.EconomyPort `json:"-"`
}

// HumanPlayerCount counts seated players with a real account behind them.
func (ms *MatchState) HumanPlayerCount() int {
	count := 0
	for _, userID := range ms.Battle.Order {
		if !bot.IsBot(userID) {
			count++
		}
	}
	return count
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the room is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing battle room.")

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}
	if err := config.LoadCatalogs(); err != nil {
		logger.Warn("MatchInit: Could not load card catalogs: %v", err)
	}
	if err := bot.LoadIdentities("data/bot_identities.json"); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}

	roomID, _ := params["room_id"].(string)
	if roomID == "" {
		// Direct match creation without the join_room RPC; fall back to the
		// match id so the label stays queryable.
		roomID, _ = ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
		logger.Warn("MatchInit: No room_id param, using match id %q.", roomID)
	}

	rules := app.DefaultRules()
	if cfg := config.GetGameConfig(); cfg != nil {
		if cfg.MaxHP > 0 {
			rules.MaxHP = cfg.MaxHP
		}
		if cfg.HandSize > 0 {
			rules.HandSize = cfg.HandSize
		}
		if cfg.MaxCost > 0 {
			rules.MaxCost = cfg.MaxCost
		}
		if cfg.BaseEvasion > 0 {
			rules.BaseEvasion = cfg.BaseEvasion
		}
	}

	catalog := config.CatalogForRoom(roomID)
	if catalog == nil {
		logger.Error("MatchInit: No card catalog available for room %q.", roomID)
		return nil, 0, ""
	}

	svc := app.NewService(nil, rules)
	state := &MatchState{
		RoomID:    roomID,
		Tick:      time.Now().Unix(),
		Presences: make(map[string]runtime.Presence),
		App:       svc,
		Battle:    svc.NewBattle(roomID, catalog),
		Bots:      make(map[string]*bot.Agent),
		Economy:   NewNakamaEconomyAdapter(nk),
	}

	// Bot behaviour: config defaults, overridable per deployment via env.
	if cfg := config.GetGameConfig(); cfg != nil {
		state.BotMinDelay = cfg.BotMinDelaySeconds
		state.BotMaxDelay = cfg.BotMaxDelaySeconds
		state.BotAutoFillDelay = cfg.BotAutoFillDelaySeconds
	}
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["cardbattle_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["cardbattle_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["cardbattle_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["cardbattle_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
		}
	}
	if state.BotMinDelay == 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay == 0 {
		state.BotMaxDelay = 3
	}
	if state.BotAutoFillDelay == 0 {
		state.BotAutoFillDelay = 5
	}

	labelBytes, err := json.Marshal(labelFor(state))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Reconnects of seated players pass; everyone else needs an open seat.
	if _, seated := matchState.Battle.Players[presence.GetUserId()]; seated {
		return matchState, true, ""
	}
	if matchState.Battle.Phase == domain.PhaseEnded {
		return matchState, false, ErrCodeRoomFull
	}
	if matchState.Battle.IsFull() {
		return matchState, false, ErrCodeRoomFull
	}

	return matchState, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		events, err := matchState.App.Join(matchState.Battle, p.GetUserId(), p.GetUsername())
		if err != nil {
			logger.Warn("MatchJoin: User %s could not be seated: %v", p.GetUserId(), err)
			mh.sendError(matchState, dispatcher, logger, p.GetUserId(), ErrCodeRoomFull, err.Error())
			continue
		}
		for _, ev := range events {
			mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave is called when one or more players leave the room. A departure
// mid-battle hands the win to the survivor; an empty room is deleted.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		events := matchState.App.Leave(matchState.Battle, p.GetUserId())
		for _, ev := range events {
			mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
		}
		logger.Debug("MatchLeave: User %s left room %s.", p.GetUserId(), matchState.RoomID)
	}

	if len(matchState.Battle.Order) == 0 || matchState.Battle.Phase == domain.PhaseEnded {
		logger.Info("MatchLeave: Deleting room %s.", matchState.RoomID)
		return nil
	}
	if matchState.HumanPlayerCount() == 0 {
		logger.Info("MatchLeave: Terminating room %s with no humans.", matchState.RoomID)
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpPlayCard:
			mh.handlePlayCard(ctx, matchState, dispatcher, logger, msg)
		case OpEndTurn:
			mh.handleEndTurn(ctx, matchState, dispatcher, logger, msg)
		case OpSetName:
			mh.handleSetName(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	// A finished battle deletes the room; clients were already told the winner.
	if matchState.Battle.Phase == domain.PhaseEnded {
		logger.Info("MatchLoop: Battle over, deleting room %s.", matchState.RoomID)
		return nil
	}

	return matchState
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Seat a bot opponent when a lone human has waited long enough.
	if state.Battle.Phase == domain.PhaseLobby {
		if state.HumanPlayerCount() == 1 && !state.Battle.IsFull() {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
				logger.Debug("processBots: Single player detected, starting auto-fill timer.")
			}

			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				identity := bot.GetBotIdentity(len(state.Bots))
				agent, err := bot.NewAgent(identity.UserID)
				if err != nil {
					logger.Error("processBots: Failed to create bot agent for %s: %v", identity.UserID, err)
					state.LastSinglePlayerTick = 0
					return
				}
				state.Bots[identity.UserID] = agent

				events, err := state.App.Join(state.Battle, identity.UserID, agent.Name)
				if err != nil {
					logger.Error("processBots: Failed to seat bot %s: %v", identity.UserID, err)
					delete(state.Bots, identity.UserID)
				} else {
					logger.Info("processBots: Seated bot %s (%s) in room %s.", identity.Username, identity.UserID, state.RoomID)
					for _, ev := range events {
						mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
					}
					mh.updateLabel(state, dispatcher, logger)
				}
				state.LastSinglePlayerTick = 0
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
	}

	// 2. Act on the bot's turn after a humanizing delay.
	if state.Battle.Phase == domain.PhasePlaying {
		currentUserID := state.Battle.CurrentTurnID()

		if bot.IsBot(currentUserID) {
			if state.BotWaitUntil == 0 {
				delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
				state.BotWaitUntil = state.Tick + int64(delay)
				logger.Debug("processBots: Bot %s will act at tick %d (current %d).", currentUserID, state.BotWaitUntil, state.Tick)
			}

			if state.Tick >= state.BotWaitUntil {
				state.BotWaitUntil = 0

				agent, exists := state.Bots[currentUserID]
				if !exists {
					var err error
					agent, err = bot.NewAgent(currentUserID)
					if err != nil {
						logger.Error("processBots: Failed to create fallback agent: %v", err)
						return
					}
					state.Bots[currentUserID] = agent
				}

				move, err := agent.Play(state.Battle)
				if err != nil {
					logger.Error("processBots: Bot %s failed to calculate move: %v", currentUserID, err)
					return
				}

				var events []app.Event
				if move.EndTurn {
					events, err = state.App.EndTurn(state.Battle, currentUserID)
				} else {
					events, err = state.App.PlayCard(state.Battle, currentUserID, move.Card)
					if err != nil {
						// The strategy picked a card the rules refused; yield
						// the turn rather than stalling the room.
						logger.Warn("processBots: Bot %s play %q rejected (%v), ending turn.", currentUserID, move.Card, err)
						events, err = state.App.EndTurn(state.Battle, currentUserID)
					}
				}
				if err != nil {
					logger.Error("processBots: Bot %s move failed: %v", currentUserID, err)
					return
				}
				for _, ev := range events {
					mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
				}
			}
		} else {
			state.BotWaitUntil = 0
		}
	}
}

// playCardRequest is the OpPlayCard payload.
type playCardRequest struct {
	CardName string `json:"card_name"`
}

// setNameRequest is the OpSetName payload.
type setNameRequest struct {
	Name string `json:"name"`
}

// gameErrorEvent is the OpGameError payload.
type gameErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (mh *matchHandler) handlePlayCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request playCardRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Error("handlePlayCard: Failed to unmarshal request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeInternal, "malformed request")
		return
	}

	events, err := state.App.PlayCard(state.Battle, senderID, request.CardName)
	if err != nil {
		logger.Warn("handlePlayCard: User %s failed to play %q: %v", senderID, request.CardName, err)
		mh.sendError(state, dispatcher, logger, senderID, errorCodeFor(err), err.Error())
		return
	}

	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handleEndTurn(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	events, err := state.App.EndTurn(state.Battle, senderID)
	if err != nil {
		logger.Warn("handleEndTurn: User %s failed to end turn: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, errorCodeFor(err), err.Error())
		return
	}

	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handleSetName(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request setNameRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Error("handleSetName: Failed to unmarshal request from %s: %v", senderID, err)
		return
	}

	events, err := state.App.SetName(state.Battle, senderID, request.Name)
	if err != nil {
		logger.Warn("handleSetName: User %s failed to set name: %v", senderID, err)
		return
	}

	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

// errorCodeFor maps rule rejections to the machine-readable codes clients
// switch on.
func errorCodeFor(err error) string {
	switch {
	case errors.Is(err, app.ErrRoomFull):
		return ErrCodeRoomFull
	case errors.Is(err, app.ErrNotYourTurn):
		return ErrCodeNotYourTurn
	case errors.Is(err, app.ErrInvalidCard):
		return ErrCodeInvalidCard
	case errors.Is(err, app.ErrNoCosts):
		return ErrCodeNoCosts
	case errors.Is(err, app.ErrNotPlaying):
		return ErrCodeNotPlaying
	default:
		return ErrCodeInternal
	}
}

// opcodeFor maps app event kinds to wire opcodes.
func opcodeFor(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventMessage:
		return OpMessage, true
	case app.EventPlayerMessage:
		return OpPlayerMessage, true
	case app.EventStateUpdate:
		return OpStateUpdate, true
	case app.EventHandUpdate:
		return OpHandUpdate, true
	case app.EventCostUpdate:
		return OpCostUpdate, true
	case app.EventYourTurn:
		return OpYourTurn, true
	case app.EventCardPlayed:
		return OpCardPlayed, true
	case app.EventGameOver:
		return OpGameOver, true
	case app.EventPlayerJoined:
		return OpPlayerJoined, true
	case app.EventPlayerLeft:
		return OpPlayerLeft, true
	default:
		return 0, false
	}
}

// broadcastEvent marshals and dispatches one app event to its recipients.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := opcodeFor(ev.Kind)
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	if ev.Kind == app.EventGameOver {
		mh.settleStakes(ctx, state, logger, ev.Payload.(app.GameOverPayload))
		mh.updateLabel(state, dispatcher, logger)
	}

	bytes, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Default to broadcast; resolve targeted recipients to live presences.
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// If we had intended recipients but none are connected (e.g. they are
		// bots), we MUST NOT broadcast to everyone else.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

// settleStakes moves the win stake from the loser's wallet to the winner's.
// Bot seats carry no wallet and are skipped.
func (mh *matchHandler) settleStakes(ctx context.Context, state *MatchState, logger runtime.Logger, p app.GameOverPayload) {
	if state.Economy == nil {
		return
	}

	stake := config.GetWinStake()
	updates := make([]ports.WalletUpdate, 0, len(state.Battle.Order))
	for _, userID := range state.Battle.Order {
		if bot.IsBot(userID) {
			continue
		}
		amount := -stake
		if userID == p.WinnerID {
			amount = stake
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: userID,
			Amount: amount,
			Metadata: map[string]interface{}{
				"match_id": ctx.Value(runtime.RUNTIME_CTX_MATCH_ID),
				"reason":   "battle_settlement",
			},
		})
	}
	if len(updates) == 0 {
		return
	}
	if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("Failed to settle stakes: %v", err)
	}
}

// sendError delivers a rejection to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, code, message string) {
	bytes, err := json.Marshal(gameErrorEvent{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal game error: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

func labelFor(state *MatchState) matchLabel {
	open := domain.PlayersPerBattle - len(state.Battle.Order)
	if open < 0 || state.Battle.Phase != domain.PhaseLobby {
		open = 0
	}
	return matchLabel{
		Game:   "cardbattle",
		RoomID: state.RoomID,
		Open:   open,
		Phase:  string(state.Battle.Phase),
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(labelFor(state))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Room terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
