package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
)

// JoinRoomRequest names the room the client wants. Room ids are free-form
// client strings; the id doubles as the catalog selector.
type JoinRoomRequest struct {
	RoomID string `json:"room_id"`
}

// JoinRoomResponse carries the Nakama match id the client should join.
type JoinRoomResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcJoinRoom, rpcJoinRoom); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcVivoxToken, RpcGetVivoxToken)
}

// rpcJoinRoom resolves a room id to an authoritative match, creating the room
// on first use. Find-or-create keeps the room registry inside Nakama's match
// registry: the room id lives in the match label and is found by query.
func rpcJoinRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req JoinRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
	}
	if req.RoomID == "" {
		return "", runtime.NewError("room_id required", 3)
	}

	limit := 1
	authoritative := true
	minSize := 0
	maxSize := 2
	query := fmt.Sprintf("+label.game:cardbattle +label.room_id:%s", req.RoomID)

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("rpcJoinRoom [User:%s]: Failed to list matches: %v", userID, err)
		return "", err
	}

	if len(matches) > 0 {
		resp := JoinRoomResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameCardBattle, map[string]interface{}{"room_id": req.RoomID})
	if err != nil {
		logger.Error("rpcJoinRoom [User:%s]: Failed to create room %q: %v", userID, req.RoomID, err)
		return "", err
	}

	logger.Info("rpcJoinRoom [User:%s]: Created room %q as match %s", userID, req.RoomID, matchID)
	resp := JoinRoomResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
