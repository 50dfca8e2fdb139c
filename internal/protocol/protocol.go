package protocol

import "encoding/json"

// ClientVersion is reported to the gate at login. The gate rejects logins
// from versions it no longer serves.
const ClientVersion = "1.6.0.14_20251224"

// Gate endpoints by platform.
const (
	GateURLQQ = "wss://gate-obt.nqf.qq.com/prod/ws"
	GateURLWX = "wss://gate-obt-wx.nqf.qq.com/prod/ws"
)

// Message types. Requests and responses come in pairs; *_PUSH frames are
// unsolicited.
const (
	TypeLoginReq      = "LOGIN_REQ"
	TypeLoginResp     = "LOGIN_RESP"
	TypeHeartbeatReq  = "HEARTBEAT_REQ"
	TypeHeartbeatResp = "HEARTBEAT_RESP"

	TypeLandsReq  = "LANDS_REQ"
	TypeLandsResp = "LANDS_RESP"

	TypeHarvestReq    = "HARVEST_REQ"
	TypeHarvestResp   = "HARVEST_RESP"
	TypeClearReq      = "CLEAR_REQ"
	TypeClearResp     = "CLEAR_RESP"
	TypePlantReq      = "PLANT_REQ"
	TypePlantResp     = "PLANT_RESP"
	TypeCareReq       = "CARE_REQ"
	TypeCareResp      = "CARE_RESP"
	TypeFertilizeReq  = "FERTILIZE_REQ"
	TypeFertilizeResp = "FERTILIZE_RESP"
	TypeBuySeedReq    = "BUY_SEED_REQ"
	TypeBuySeedResp   = "BUY_SEED_RESP"

	TypeCropCatalogReq  = "CROP_CATALOG_REQ"
	TypeCropCatalogResp = "CROP_CATALOG_RESP"

	TypeFriendListReq    = "FRIEND_LIST_REQ"
	TypeFriendListResp   = "FRIEND_LIST_RESP"
	TypeFriendLandsReq   = "FRIEND_LANDS_REQ"
	TypeFriendLandsResp  = "FRIEND_LANDS_RESP"
	TypeStealReq         = "STEAL_REQ"
	TypeStealResp        = "STEAL_RESP"
	TypeSabotageReq      = "SABOTAGE_REQ"
	TypeSabotageResp     = "SABOTAGE_RESP"
	TypeAcceptFriendReq  = "ACCEPT_FRIEND_REQ"
	TypeAcceptFriendResp = "ACCEPT_FRIEND_RESP"
	TypeSyncAllReq       = "SYNC_ALL_REQ"
	TypeSyncAllResp      = "SYNC_ALL_RESP"

	TypeTaskListReq   = "TASK_LIST_REQ"
	TypeTaskListResp  = "TASK_LIST_RESP"
	TypeClaimTaskReq  = "CLAIM_TASK_REQ"
	TypeClaimTaskResp = "CLAIM_TASK_RESP"

	TypeWarehouseReq  = "WAREHOUSE_REQ"
	TypeWarehouseResp = "WAREHOUSE_RESP"
	TypeSellReq       = "SELL_REQ"
	TypeSellResp      = "SELL_RESP"

	TypeLandsPush             = "LANDS_PUSH"
	TypeFriendApplicationPush = "FRIEND_APPLICATION_PUSH"
)

// Envelope frames every message on the gate socket. Pushes carry seq 0.
// A non-empty code marks a rejected request; payload is absent in that case.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     uint32          `json:"seq"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Code    string          `json:"code,omitempty"`
	Msg     string          `json:"msg,omitempty"`
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(b, &e)
	return e, err
}

// Well-known gate rejection codes observed on live captures. The set is
// open-ended; unknown codes are still surfaced verbatim.
const (
	CodeBadCode        = "E_BAD_CODE"
	CodeVersionTooOld  = "E_VERSION_TOO_OLD"
	CodeAlreadyDone    = "E_ALREADY_DONE"
	CodeNotMature      = "E_NOT_MATURE"
	CodeNoGold         = "E_NO_GOLD"
	CodeNoHelpLeft     = "E_NO_HELP_LEFT"
	CodeStealForbidden = "E_STEAL_FORBIDDEN"
	CodeTaskNotReady   = "E_TASK_NOT_READY"
	CodeRateLimit      = "E_RATE_LIMIT"
)
