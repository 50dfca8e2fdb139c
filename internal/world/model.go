// Package world keeps the in-memory account state: lands, player, item
// counts and the crop catalogue. Every entity is rebuilt from the latest
// authoritative gate message; nothing here advances timers or invents
// state the server has not sent.
package world

import (
	"sort"
	"sync"

	"farmhand.ai/internal/protocol"
)

// Land is one plot. A nil Plant means the plot is empty.
type Land struct {
	ID       int
	Unlocked bool
	Plant    *Plant
}

type Player struct {
	UID          string
	Name         string
	Level        int
	Exp          int64
	NextLevelExp int64
	Gold         int64
}

// LevelProgress is the derived exp fraction toward the next level.
func (p Player) LevelProgress() float64 {
	if p.NextLevelExp <= 0 {
		return 0
	}
	return float64(p.Exp) / float64(p.NextLevelExp)
}

type Crop struct {
	ID            int
	Name          string
	LevelRequired int
	SeedPrice     int64
	GrowSeconds   int64
	HarvestExp    int64
	FruitID       int
}

// Model is the shared world state. Writers are the orchestrator's push
// consumer and the schedulers applying their own responses; everything
// else only reads snapshots.
type Model struct {
	mu     sync.RWMutex
	player Player
	lands  map[int]Land
	items  map[int]int
	crops  map[int]Crop
}

func NewModel() *Model {
	return &Model{
		lands: make(map[int]Land),
		items: make(map[int]int),
		crops: make(map[int]Crop),
	}
}

// ApplyLogin seeds the model from the login snapshot.
func (m *Model) ApplyLogin(resp *protocol.LoginResp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.player = Player{
		UID:          resp.Player.UID,
		Name:         resp.Player.Name,
		Level:        resp.Player.Level,
		Exp:          resp.Player.Exp,
		NextLevelExp: resp.Player.NextLevelExp,
		Gold:         resp.Player.Gold,
	}
	m.lands = make(map[int]Land, len(resp.Lands))
	for _, li := range resp.Lands {
		m.lands[li.ID] = landFromInfo(li)
	}
	m.items = make(map[int]int, len(resp.Items))
	for _, it := range resp.Items {
		m.items[it.ItemID] = it.Count
	}
}

func landFromInfo(li protocol.LandInfo) Land {
	return Land{ID: li.ID, Unlocked: li.Unlocked, Plant: plantFromInfo(li.Plant)}
}

// ApplyLands replaces every land named in the update. Lands absent from
// the update keep their previous state; each named land is replaced
// wholesale, never merged.
func (m *Model) ApplyLands(lands []protocol.LandInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, li := range lands {
		m.lands[li.ID] = landFromInfo(li)
	}
}

// ApplyLand replaces one land from a response subtree. A nil info is a
// no-op so callers can pass a response's optional land directly.
func (m *Model) ApplyLand(li *protocol.LandInfo) {
	if li == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lands[li.ID] = landFromInfo(*li)
}

// Lands returns a snapshot of all lands in ascending id order.
func (m *Model) Lands() []Land {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Land, 0, len(m.lands))
	for _, l := range m.lands {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Model) Player() Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.player
}

// AddExp credits experience from an action response.
func (m *Model) AddExp(exp int64) {
	if exp == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.player.Exp += exp
}

// SetGold replaces the balance with the server-reported value.
func (m *Model) SetGold(gold int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.player.Gold = gold
}

func (m *Model) ItemCount(itemID int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[itemID]
}

// SetItemCount replaces one item's count with the server-reported value.
func (m *Model) SetItemCount(itemID, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if count <= 0 {
		delete(m.items, itemID)
		return
	}
	m.items[itemID] = count
}

// AddItem credits a harvest or theft yield.
func (m *Model) AddItem(itemID, count int) {
	if count == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[itemID] += count
}

// SetCrops installs the crop catalogue. Fetched once after login and
// read-only afterwards.
func (m *Model) SetCrops(crops []protocol.CropInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crops = make(map[int]Crop, len(crops))
	for _, c := range crops {
		m.crops[c.ID] = Crop{
			ID:            c.ID,
			Name:          c.Name,
			LevelRequired: c.LevelRequired,
			SeedPrice:     c.SeedPrice,
			GrowSeconds:   c.GrowSeconds,
			HarvestExp:    c.HarvestExp,
			FruitID:       c.FruitID,
		}
	}
}

func (m *Model) Crop(id int) (Crop, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.crops[id]
	return c, ok
}

// Crops returns the catalogue sorted by id.
func (m *Model) Crops() []Crop {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Crop, 0, len(m.crops))
	for _, c := range m.crops {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
