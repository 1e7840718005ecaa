package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"cardbattle/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// vivoxService is configured once in InitModule from runtime env credentials.
// nil means voice chat is disabled for this deployment.
var vivoxService *app.VivoxService

// SetupVivox configures the token service from runtime env credentials.
func SetupVivox(env map[string]string) {
	secret := env["vivox_secret"]
	issuer := env["vivox_issuer"]
	domain := env["vivox_domain"]
	if secret == "" || issuer == "" || domain == "" {
		return
	}
	vivoxService = app.NewVivoxService(secret, issuer, domain)
}

// RpcGetVivoxToken issues a signed Vivox access token for the calling user.
// Payload: {"action": "login" | "join", "channel": "<match id, join only>"}
func RpcGetVivoxToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if vivoxService == nil {
		return "", runtime.NewError("Voice chat is not configured", 12) // UNIMPLEMENTED
	}

	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("No user id in context", 16) // UNAUTHENTICATED
	}

	var req struct {
		Action  string `json:"action"`
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
	}
	if req.Action == "" {
		req.Action = app.VivoxTokenActionLogin
	}

	token, err := vivoxService.GenerateToken(userID, req.Action, req.Channel)
	if err != nil {
		logger.Error("RpcGetVivoxToken [User:%s]: %v", userID, err)
		return "", runtime.NewError(err.Error(), 3)
	}

	res := map[string]string{"token": token}
	resBytes, _ := json.Marshal(res)
	return string(resBytes), nil
}
