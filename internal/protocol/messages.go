package protocol

// LOGIN_REQ (client -> gate). Code is the one-time credential from the
// mini-program login flow; it cannot be reused across connections.
type LoginReq struct {
	Code          string `json:"code"`
	Platform      string `json:"platform"`
	OS            string `json:"os"`
	ClientVersion string `json:"client_version"`
	DeviceID      string `json:"device_id"`
}

// LOGIN_RESP carries the session token plus the initial account snapshot.
type LoginResp struct {
	Token  string      `json:"token"`
	UID    string      `json:"uid"`
	Player PlayerInfo  `json:"player"`
	Lands  []LandInfo  `json:"lands,omitempty"`
	Items  []ItemStack `json:"items,omitempty"`
}

type PlayerInfo struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	Level        int    `json:"level"`
	Exp          int64  `json:"exp"`
	NextLevelExp int64  `json:"next_level_exp"`
	Gold         int64  `json:"gold"`
}

type ItemStack struct {
	ItemID int `json:"item_id"`
	Count  int `json:"count"`
}

// Fertilizer shares the item namespace with seeds and fruits.
const ItemFertilizer = 2001

type PhaseRecord struct {
	Phase     int   `json:"phase"`
	BeginTime int64 `json:"begin_time"`
}

// PlantInfo is the server's full description of one growing plant. The
// phase timeline is precomputed at plant time and replaced wholesale on
// every refresh; hazard times are absolute epochs after which the hazard
// counts as active.
type PlantInfo struct {
	CropID       int           `json:"crop_id"`
	CropName     string        `json:"crop_name"`
	Phases       []PhaseRecord `json:"phases,omitempty"`
	DryTime      int64         `json:"dry_time"`
	WeedsTime    int64         `json:"weeds_time"`
	InsectTime   int64         `json:"insect_time"`
	WeedOwners   []string      `json:"weed_owners,omitempty"`
	InsectOwners []string      `json:"insect_owners,omitempty"`
}

type LandInfo struct {
	ID       int        `json:"id"`
	Unlocked bool       `json:"unlocked"`
	Plant    *PlantInfo `json:"plant,omitempty"`
}

type HeartbeatReq struct {
	TS int64 `json:"ts"`
}

type HeartbeatResp struct {
	TS int64 `json:"ts"`
}

// LANDS_REQ with an empty uid refreshes the account's own farm.
type LandsReq struct {
	UID string `json:"uid"`
}

type LandsResp struct {
	UID   string     `json:"uid"`
	Lands []LandInfo `json:"lands,omitempty"`
}

type HarvestReq struct {
	LandID int `json:"land_id"`
}

type HarvestResp struct {
	FruitID int       `json:"fruit_id"`
	Count   int       `json:"count"`
	Exp     int64     `json:"exp"`
	Land    *LandInfo `json:"land,omitempty"`
}

type ClearReq struct {
	LandID int `json:"land_id"`
}

type ClearResp struct {
	Land *LandInfo `json:"land,omitempty"`
}

type PlantReq struct {
	LandID int `json:"land_id"`
	CropID int `json:"crop_id"`
}

// SeedsLeft is the remaining seed count for the planted crop.
type PlantResp struct {
	Land      *LandInfo `json:"land,omitempty"`
	Exp       int64     `json:"exp"`
	SeedsLeft int       `json:"seeds_left"`
}

// Care kinds.
const (
	CareWater  = "water"
	CareWeed   = "weed"
	CareInsect = "insect"
)

// CARE_REQ remediates one hazard on one land. An empty owner uid targets
// the account's own farm; a friend uid makes it a help action.
type CareReq struct {
	OwnerUID string `json:"owner_uid"`
	LandID   int    `json:"land_id"`
	Care     string `json:"care"`
}

type CareResp struct {
	Land     *LandInfo `json:"land,omitempty"`
	Exp      int64     `json:"exp"`
	HelpLeft int       `json:"help_left"`
}

type FertilizeReq struct {
	LandID int `json:"land_id"`
}

type FertilizeResp struct {
	Land            *LandInfo `json:"land,omitempty"`
	FertilizersLeft int       `json:"fertilizers_left"`
}

type BuySeedReq struct {
	CropID int `json:"crop_id"`
	Count  int `json:"count"`
}

type BuySeedResp struct {
	CropID int   `json:"crop_id"`
	Owned  int   `json:"owned"`
	Gold   int64 `json:"gold"`
}

type CropCatalogReq struct{}

type CropCatalogResp struct {
	Crops []CropInfo `json:"crops,omitempty"`
}

// CropInfo describes one plantable species. GrowSeconds spans seeding to
// maturity; HarvestExp is credited per harvest.
type CropInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	LevelRequired int    `json:"level_required"`
	SeedPrice     int64  `json:"seed_price"`
	GrowSeconds   int64  `json:"grow_seconds"`
	HarvestExp    int64  `json:"harvest_exp"`
	FruitID       int    `json:"fruit_id"`
}

type FriendListReq struct{}

type FriendListResp struct {
	Friends []FriendInfo `json:"friends,omitempty"`
}

type FriendInfo struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type FriendLandsReq struct {
	UID string `json:"uid"`
}

// HelpLeft is the number of rewarded help actions remaining today for this
// account (not per friend).
type FriendLandsResp struct {
	UID      string     `json:"uid"`
	Lands    []LandInfo `json:"lands,omitempty"`
	HelpLeft int        `json:"help_left"`
}

type StealReq struct {
	UID    string `json:"uid"`
	LandID int    `json:"land_id"`
}

type StealResp struct {
	FruitID int       `json:"fruit_id"`
	Count   int       `json:"count"`
	Land    *LandInfo `json:"land,omitempty"`
}

// Sabotage kinds.
const (
	SabotageWeed   = "weed"
	SabotageInsect = "insect"
)

type SabotageReq struct {
	UID    string `json:"uid"`
	LandID int    `json:"land_id"`
	Kind   string `json:"kind"`
}

type SabotageResp struct {
	Land *LandInfo `json:"land,omitempty"`
}

type AcceptFriendReq struct {
	UID string `json:"uid"`
}

type AcceptFriendResp struct {
	Friend *FriendInfo `json:"friend,omitempty"`
}

// InviteCode is one parsed line of a share link file.
type InviteCode struct {
	UID         string `json:"uid"`
	OpenID      string `json:"openid"`
	ShareSource string `json:"share_source"`
	DocID       string `json:"doc_id"`
}

type SyncAllReq struct {
	Invites []InviteCode `json:"invites,omitempty"`
}

type SyncAllResp struct {
	Added int `json:"added"`
}

type TaskListReq struct{}

type TaskListResp struct {
	Tasks []TaskInfo `json:"tasks,omitempty"`
}

type TaskInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Completed     bool   `json:"completed"`
	Claimed       bool   `json:"claimed"`
	ShareEligible bool   `json:"share_eligible"`
	RewardExp     int64  `json:"reward_exp"`
	RewardGold    int64  `json:"reward_gold"`
}

type ClaimTaskReq struct {
	TaskID int  `json:"task_id"`
	Share  bool `json:"share"`
}

type ClaimTaskResp struct {
	Exp        int64 `json:"exp"`
	Gold       int64 `json:"gold"`
	Multiplier int   `json:"multiplier"`
}

type WarehouseReq struct{}

type WarehouseResp struct {
	Items []WarehouseItem `json:"items,omitempty"`
}

type WarehouseItem struct {
	ItemID    int    `json:"item_id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
	SellPrice int64  `json:"sell_price"`
	Sellable  bool   `json:"sellable"`
}

type SellReq struct {
	ItemID int `json:"item_id"`
	Count  int `json:"count"`
}

type SellResp struct {
	Gold int64 `json:"gold"`
}

// LANDS_PUSH (gate -> client): the account's land set changed outside a
// request of ours (e.g. a friend stole or helped).
type LandsPush struct {
	Lands []LandInfo `json:"lands,omitempty"`
}

// FRIEND_APPLICATION_PUSH (gate -> client).
type FriendApplicationPush struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}
