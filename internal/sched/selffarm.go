package sched

import (
	"context"
	"log"
	"time"

	"farmhand.ai/internal/journal"
	"farmhand.ai/internal/protocol"
	"farmhand.ai/internal/world"
)

type SelfFarmConfig struct {
	Interval time.Duration
	// ForceLowestLevelCrop plants the cheapest eligible crop unconditionally,
	// skipping the experience-efficiency comparison.
	ForceLowestLevelCrop bool
}

// SelfFarm patrols the account's own lands: harvest, clear, plant,
// fertilize and remediate, one land at a time in ascending id order.
type SelfFarm struct {
	c   Caller
	w   *world.Model
	cfg SelfFarmConfig
	log *log.Logger
	j   Journal

	now func() time.Time
}

func NewSelfFarm(c Caller, w *world.Model, cfg SelfFarmConfig, logger *log.Logger, j Journal) *SelfFarm {
	return &SelfFarm{c: c, w: w, cfg: cfg, log: logger, j: j, now: time.Now}
}

// Run patrols until ctx is done. Stopping is cooperative: it takes effect
// between passes.
func (f *SelfFarm) Run(ctx context.Context) {
	for {
		if f.c.Ready() {
			f.Pass(ctx)
		}
		if !sleepCtx(ctx, f.cfg.Interval) {
			return
		}
	}
}

// Pass refreshes the land set and tends every unlocked land once.
func (f *SelfFarm) Pass(ctx context.Context) {
	resp, err := call[protocol.LandsResp](ctx, f.c, protocol.TypeLandsReq, &protocol.LandsReq{})
	if err != nil {
		f.log.Printf("refresh lands: %v", err)
		return
	}
	f.w.ApplyLands(resp.Lands)

	for _, land := range f.w.Lands() {
		if ctx.Err() != nil {
			return
		}
		if !land.Unlocked {
			continue
		}
		f.tend(ctx, land)
	}
}

func (f *SelfFarm) tend(ctx context.Context, land world.Land) {
	if land.Plant == nil {
		f.plantOn(ctx, land)
		return
	}
	switch land.Plant.CurrentPhase(f.now()) {
	case world.PhaseMature:
		f.harvest(ctx, land)
	case world.PhaseDead:
		f.clear(ctx, land)
	default:
		f.remediate(ctx, land)
	}
}

func (f *SelfFarm) harvest(ctx context.Context, land world.Land) {
	resp, err := call[protocol.HarvestResp](ctx, f.c, protocol.TypeHarvestReq, &protocol.HarvestReq{LandID: land.ID})
	if err != nil {
		f.log.Printf("land %d harvest: %v", land.ID, err)
		return
	}
	f.w.AddExp(resp.Exp)
	f.w.AddItem(resp.FruitID, resp.Count)
	f.w.ApplyLand(resp.Land)
	f.log.Printf("land %d harvested %s x%d (+%d exp)", land.ID, land.Plant.CropName, resp.Count, resp.Exp)
	record(f.j, journal.Action{Kind: "harvest", LandID: land.ID, ItemID: resp.FruitID, Count: resp.Count, Exp: resp.Exp})
}

func (f *SelfFarm) clear(ctx context.Context, land world.Land) {
	resp, err := call[protocol.ClearResp](ctx, f.c, protocol.TypeClearReq, &protocol.ClearReq{LandID: land.ID})
	if err != nil {
		f.log.Printf("land %d clear: %v", land.ID, err)
		return
	}
	f.w.ApplyLand(resp.Land)
	f.log.Printf("land %d cleared dead %s", land.ID, land.Plant.CropName)
	record(f.j, journal.Action{Kind: "clear", LandID: land.ID})
}

func (f *SelfFarm) plantOn(ctx context.Context, land world.Land) {
	crop, ok := f.chooseCrop()
	if !ok {
		return
	}

	if f.w.ItemCount(crop.ID) == 0 {
		buy, err := call[protocol.BuySeedResp](ctx, f.c, protocol.TypeBuySeedReq, &protocol.BuySeedReq{CropID: crop.ID, Count: 1})
		if err != nil {
			f.log.Printf("land %d buy seed %s: %v", land.ID, crop.Name, err)
			return
		}
		f.w.SetGold(buy.Gold)
		f.w.SetItemCount(crop.ID, buy.Owned)
		record(f.j, journal.Action{Kind: "buy_seed", LandID: land.ID, ItemID: crop.ID, Count: 1})
	}

	resp, err := call[protocol.PlantResp](ctx, f.c, protocol.TypePlantReq, &protocol.PlantReq{LandID: land.ID, CropID: crop.ID})
	if err != nil {
		f.log.Printf("land %d plant %s: %v", land.ID, crop.Name, err)
		return
	}
	f.w.AddExp(resp.Exp)
	f.w.SetItemCount(crop.ID, resp.SeedsLeft)
	f.w.ApplyLand(resp.Land)
	f.log.Printf("land %d planted %s (+%d exp)", land.ID, crop.Name, resp.Exp)
	record(f.j, journal.Action{Kind: "plant", LandID: land.ID, ItemID: crop.ID, Exp: resp.Exp})

	f.fertilize(ctx, land)
}

func (f *SelfFarm) fertilize(ctx context.Context, land world.Land) {
	if f.w.ItemCount(protocol.ItemFertilizer) == 0 {
		return
	}
	resp, err := call[protocol.FertilizeResp](ctx, f.c, protocol.TypeFertilizeReq, &protocol.FertilizeReq{LandID: land.ID})
	if err != nil {
		f.log.Printf("land %d fertilize: %v", land.ID, err)
		return
	}
	f.w.SetItemCount(protocol.ItemFertilizer, resp.FertilizersLeft)
	f.w.ApplyLand(resp.Land)
	record(f.j, journal.Action{Kind: "fertilize", LandID: land.ID})
}

// remediate issues at most one remediation per land per pass, priority
// water > weed > insect.
func (f *SelfFarm) remediate(ctx context.Context, land world.Land) {
	now := f.now()
	var careKind string
	switch {
	case land.Plant.NeedsWater(now):
		careKind = protocol.CareWater
	case land.Plant.HasWeeds(now):
		careKind = protocol.CareWeed
	case land.Plant.HasInsects(now):
		careKind = protocol.CareInsect
	default:
		return
	}
	resp, err := call[protocol.CareResp](ctx, f.c, protocol.TypeCareReq, &protocol.CareReq{LandID: land.ID, Care: careKind})
	if err != nil {
		f.log.Printf("land %d %s: %v", land.ID, careKind, err)
		return
	}
	f.w.AddExp(resp.Exp)
	f.w.ApplyLand(resp.Land)
	f.log.Printf("land %d %s done (+%d exp)", land.ID, careKind, resp.Exp)
	record(f.j, journal.Action{Kind: "care", LandID: land.ID, Exp: resp.Exp, Note: careKind})
}

// chooseCrop picks what to plant. The default strategy maximizes harvest
// experience per grow second among crops the account can plant and pay
// for; the force-lowest flag bypasses that comparison entirely.
func (f *SelfFarm) chooseCrop() (world.Crop, bool) {
	player := f.w.Player()
	var eligible []world.Crop
	for _, c := range f.w.Crops() {
		if c.LevelRequired > player.Level {
			continue
		}
		if f.w.ItemCount(c.ID) == 0 && c.SeedPrice > player.Gold {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return world.Crop{}, false
	}
	if f.cfg.ForceLowestLevelCrop {
		return lowestTierCrop(eligible), true
	}
	return bestEfficiencyCrop(eligible), true
}

func lowestTierCrop(crops []world.Crop) world.Crop {
	best := crops[0]
	for _, c := range crops[1:] {
		if c.LevelRequired < best.LevelRequired ||
			(c.LevelRequired == best.LevelRequired && c.SeedPrice < best.SeedPrice) {
			best = c
		}
	}
	return best
}

func bestEfficiencyCrop(crops []world.Crop) world.Crop {
	best := crops[0]
	bestRate := expRate(best)
	for _, c := range crops[1:] {
		r := expRate(c)
		if r > bestRate || (r == bestRate && c.SeedPrice < best.SeedPrice) {
			best = c
			bestRate = r
		}
	}
	return best
}

func expRate(c world.Crop) float64 {
	if c.GrowSeconds <= 0 {
		return 0
	}
	return float64(c.HarvestExp) / float64(c.GrowSeconds)
}
