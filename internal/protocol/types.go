package protocol

// Types maps every message-type name to a factory for its Go representation.
// The codec registry binds these to the schema catalogue; a name present in
// only one of the two is a startup error.
func Types() map[string]func() any {
	return map[string]func() any{
		TypeLoginReq:      func() any { return &LoginReq{} },
		TypeLoginResp:     func() any { return &LoginResp{} },
		TypeHeartbeatReq:  func() any { return &HeartbeatReq{} },
		TypeHeartbeatResp: func() any { return &HeartbeatResp{} },

		TypeLandsReq:  func() any { return &LandsReq{} },
		TypeLandsResp: func() any { return &LandsResp{} },

		TypeHarvestReq:    func() any { return &HarvestReq{} },
		TypeHarvestResp:   func() any { return &HarvestResp{} },
		TypeClearReq:      func() any { return &ClearReq{} },
		TypeClearResp:     func() any { return &ClearResp{} },
		TypePlantReq:      func() any { return &PlantReq{} },
		TypePlantResp:     func() any { return &PlantResp{} },
		TypeCareReq:       func() any { return &CareReq{} },
		TypeCareResp:      func() any { return &CareResp{} },
		TypeFertilizeReq:  func() any { return &FertilizeReq{} },
		TypeFertilizeResp: func() any { return &FertilizeResp{} },
		TypeBuySeedReq:    func() any { return &BuySeedReq{} },
		TypeBuySeedResp:   func() any { return &BuySeedResp{} },

		TypeCropCatalogReq:  func() any { return &CropCatalogReq{} },
		TypeCropCatalogResp: func() any { return &CropCatalogResp{} },

		TypeFriendListReq:    func() any { return &FriendListReq{} },
		TypeFriendListResp:   func() any { return &FriendListResp{} },
		TypeFriendLandsReq:   func() any { return &FriendLandsReq{} },
		TypeFriendLandsResp:  func() any { return &FriendLandsResp{} },
		TypeStealReq:         func() any { return &StealReq{} },
		TypeStealResp:        func() any { return &StealResp{} },
		TypeSabotageReq:      func() any { return &SabotageReq{} },
		TypeSabotageResp:     func() any { return &SabotageResp{} },
		TypeAcceptFriendReq:  func() any { return &AcceptFriendReq{} },
		TypeAcceptFriendResp: func() any { return &AcceptFriendResp{} },
		TypeSyncAllReq:       func() any { return &SyncAllReq{} },
		TypeSyncAllResp:      func() any { return &SyncAllResp{} },

		TypeTaskListReq:   func() any { return &TaskListReq{} },
		TypeTaskListResp:  func() any { return &TaskListResp{} },
		TypeClaimTaskReq:  func() any { return &ClaimTaskReq{} },
		TypeClaimTaskResp: func() any { return &ClaimTaskResp{} },

		TypeWarehouseReq:  func() any { return &WarehouseReq{} },
		TypeWarehouseResp: func() any { return &WarehouseResp{} },
		TypeSellReq:       func() any { return &SellReq{} },
		TypeSellResp:      func() any { return &SellResp{} },

		TypeLandsPush:             func() any { return &LandsPush{} },
		TypeFriendApplicationPush: func() any { return &FriendApplicationPush{} },
	}
}
