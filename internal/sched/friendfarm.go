package sched

import (
	"context"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"farmhand.ai/internal/journal"
	"farmhand.ai/internal/protocol"
	"farmhand.ai/internal/world"
)

type FriendFarmConfig struct {
	Interval time.Duration
	// HelpOnlyWithExp limits help actions to passes where the server still
	// rewards experience for them.
	HelpOnlyWithExp bool
	// StealEnabled permits harvesting mature crops on friends' lands.
	StealEnabled bool
	// EnableSabotage permits planting weeds/insects on friends' lands.
	// Adversarial; off unless the operator explicitly turns it on.
	EnableSabotage bool
}

// applicationDedupSize bounds the duplicate-suppression cache for
// friend-application pushes.
const applicationDedupSize = 512

// FriendFarm patrols friends' lands: help, steal where permitted, and
// drain the friend-application queue.
type FriendFarm struct {
	c   Caller
	w   *world.Model
	cfg FriendFarmConfig
	log *log.Logger
	j   Journal

	now  func() time.Time
	seen *lru.Cache[string, struct{}]

	mu    sync.Mutex
	queue []string // pending friend applications, uids in arrival order
}

func NewFriendFarm(c Caller, w *world.Model, cfg FriendFarmConfig, logger *log.Logger, j Journal) *FriendFarm {
	seen, _ := lru.New[string, struct{}](applicationDedupSize)
	return &FriendFarm{c: c, w: w, cfg: cfg, log: logger, j: j, now: time.Now, seen: seen}
}

// OnApplication enqueues a friend application from a push event. Repeat
// applications for the same uid are suppressed.
func (f *FriendFarm) OnApplication(uid string) {
	if uid == "" {
		return
	}
	if found, _ := f.seen.ContainsOrAdd(uid, struct{}{}); found {
		f.log.Printf("friend application %s: duplicate, dropped", uid)
		return
	}
	f.mu.Lock()
	f.queue = append(f.queue, uid)
	f.mu.Unlock()
}

// ProcessInvites syncs pre-shared invite codes. Runs once near startup,
// not on the patrol interval.
func (f *FriendFarm) ProcessInvites(ctx context.Context, invites []protocol.InviteCode) {
	if len(invites) == 0 {
		return
	}
	resp, err := call[protocol.SyncAllResp](ctx, f.c, protocol.TypeSyncAllReq, &protocol.SyncAllReq{Invites: invites})
	if err != nil {
		f.log.Printf("sync %d invites: %v", len(invites), err)
		return
	}
	f.log.Printf("synced %d invites, %d added", len(invites), resp.Added)
	record(f.j, journal.Action{Kind: "sync_all", Count: resp.Added})
}

func (f *FriendFarm) Run(ctx context.Context) {
	for {
		if f.c.Ready() {
			f.Pass(ctx)
		}
		if !sleepCtx(ctx, f.cfg.Interval) {
			return
		}
	}
}

// Pass accepts queued applications, then visits every friend in turn.
func (f *FriendFarm) Pass(ctx context.Context) {
	f.acceptApplications(ctx)

	resp, err := call[protocol.FriendListResp](ctx, f.c, protocol.TypeFriendListReq, &protocol.FriendListReq{})
	if err != nil {
		f.log.Printf("friend list: %v", err)
		return
	}
	for _, friend := range resp.Friends {
		if ctx.Err() != nil {
			return
		}
		f.visit(ctx, friend)
	}
}

func (f *FriendFarm) acceptApplications(ctx context.Context) {
	f.mu.Lock()
	queued := f.queue
	f.queue = nil
	f.mu.Unlock()

	for _, uid := range queued {
		resp, err := call[protocol.AcceptFriendResp](ctx, f.c, protocol.TypeAcceptFriendReq, &protocol.AcceptFriendReq{UID: uid})
		if err != nil {
			f.log.Printf("accept friend %s: %v", uid, err)
			continue
		}
		name := uid
		if resp.Friend != nil {
			name = resp.Friend.Name
		}
		f.log.Printf("accepted friend %s", name)
		record(f.j, journal.Action{Kind: "accept_friend", FriendUID: uid})
	}
}

func (f *FriendFarm) visit(ctx context.Context, friend protocol.FriendInfo) {
	resp, err := call[protocol.FriendLandsResp](ctx, f.c, protocol.TypeFriendLandsReq, &protocol.FriendLandsReq{UID: friend.UID})
	if err != nil {
		f.log.Printf("friend %s lands: %v", friend.UID, err)
		return
	}

	// The lands are this cycle's snapshot only; nothing is retained
	// between passes.
	helpLeft := resp.HelpLeft
	for _, li := range resp.Lands {
		if ctx.Err() != nil {
			return
		}
		if !li.Unlocked || li.Plant == nil {
			continue
		}
		pl := plantView(li.Plant)

		switch pl.CurrentPhase(f.now()) {
		case world.PhaseMature:
			if f.cfg.StealEnabled {
				f.steal(ctx, friend.UID, li.ID, li.Plant.CropName)
			}
		case world.PhaseDead, world.PhaseUnknown:
			// Nothing useful to do on a friend's plot.
		default:
			if kind := hazardOf(pl, f.now()); kind != "" {
				if f.cfg.HelpOnlyWithExp && helpLeft <= 0 {
					continue
				}
				helpLeft = f.help(ctx, friend.UID, li.ID, kind, helpLeft)
			} else if f.cfg.EnableSabotage {
				f.sabotage(ctx, friend.UID, li.ID)
			}
		}
	}
}

func plantView(pi *protocol.PlantInfo) *world.Plant {
	p := &world.Plant{
		CropID:       pi.CropID,
		CropName:     pi.CropName,
		DryTime:      pi.DryTime,
		WeedsTime:    pi.WeedsTime,
		InsectTime:   pi.InsectTime,
		WeedOwners:   pi.WeedOwners,
		InsectOwners: pi.InsectOwners,
	}
	for _, rec := range pi.Phases {
		p.Phases = append(p.Phases, world.PhaseRecord{Phase: world.Phase(rec.Phase), BeginTime: rec.BeginTime})
	}
	return p
}

func hazardOf(p *world.Plant, now time.Time) string {
	switch {
	case p.NeedsWater(now):
		return protocol.CareWater
	case p.HasWeeds(now):
		return protocol.CareWeed
	case p.HasInsects(now):
		return protocol.CareInsect
	default:
		return ""
	}
}

func (f *FriendFarm) help(ctx context.Context, uid string, landID int, kind string, helpLeft int) int {
	resp, err := call[protocol.CareResp](ctx, f.c, protocol.TypeCareReq, &protocol.CareReq{OwnerUID: uid, LandID: landID, Care: kind})
	if err != nil {
		f.log.Printf("help %s land %d %s: %v", uid, landID, kind, err)
		return helpLeft
	}
	f.w.AddExp(resp.Exp)
	f.log.Printf("helped %s land %d (%s, +%d exp)", uid, landID, kind, resp.Exp)
	record(f.j, journal.Action{Kind: "help", FriendUID: uid, LandID: landID, Exp: resp.Exp, Note: kind})
	return resp.HelpLeft
}

func (f *FriendFarm) steal(ctx context.Context, uid string, landID int, cropName string) {
	resp, err := call[protocol.StealResp](ctx, f.c, protocol.TypeStealReq, &protocol.StealReq{UID: uid, LandID: landID})
	if err != nil {
		f.log.Printf("steal from %s land %d: %v", uid, landID, err)
		return
	}
	f.w.AddItem(resp.FruitID, resp.Count)
	f.log.Printf("stole %s x%d from %s", cropName, resp.Count, uid)
	record(f.j, journal.Action{Kind: "steal", FriendUID: uid, LandID: landID, ItemID: resp.FruitID, Count: resp.Count})
}

func (f *FriendFarm) sabotage(ctx context.Context, uid string, landID int) {
	_, err := call[protocol.SabotageResp](ctx, f.c, protocol.TypeSabotageReq, &protocol.SabotageReq{UID: uid, LandID: landID, Kind: protocol.SabotageWeed})
	if err != nil {
		f.log.Printf("sabotage %s land %d: %v", uid, landID, err)
		return
	}
	f.log.Printf("planted weeds on %s land %d", uid, landID)
	record(f.j, journal.Action{Kind: "sabotage", FriendUID: uid, LandID: landID})
}
