package nakama

const (
	// RpcJoinRoom is the RPC id clients call to resolve a room id to a match,
	// creating the room on first join.
	RpcJoinRoom = "join_room"

	// RpcVivoxToken is the RPC id clients call for voice chat access tokens.
	RpcVivoxToken = "vivox_token"

	// MatchNameCardBattle is the authoritative match handler name registered with Nakama.
	MatchNameCardBattle = "cardbattle_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpPlayCard int64 = 1
	OpEndTurn  int64 = 2
	OpSetName  int64 = 3

	// Server -> Client events
	OpMessage       int64 = 101
	OpPlayerMessage int64 = 102 // send privately
	OpStateUpdate   int64 = 103
	OpHandUpdate    int64 = 104 // send privately
	OpCostUpdate    int64 = 105 // send privately
	OpYourTurn      int64 = 106 // send privately
	OpCardPlayed    int64 = 107
	OpGameOver      int64 = 108
	OpGameError     int64 = 109 // send privately
	OpPlayerJoined  int64 = 110
	OpPlayerLeft    int64 = 111
)

// Machine-readable rejection codes carried by OpGameError payloads.
const (
	ErrCodeRoomFull    = "room_full"
	ErrCodeNotYourTurn = "not_your_turn"
	ErrCodeInvalidCard = "invalid_card"
	ErrCodeNoCosts     = "no_costs"
	ErrCodeNotPlaying  = "not_playing"
	ErrCodeInternal    = "internal"
)
