package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmhand.ai/internal/protocol"
)

func seededModel() *Model {
	m := NewModel()
	m.ApplyLogin(&protocol.LoginResp{
		Token: "tok",
		UID:   "u1",
		Player: protocol.PlayerInfo{
			UID: "u1", Name: "farmer", Level: 12, Exp: 300, NextLevelExp: 1200, Gold: 5000,
		},
		Lands: []protocol.LandInfo{
			{ID: 3, Unlocked: true},
			{ID: 1, Unlocked: true, Plant: &protocol.PlantInfo{CropID: 7, CropName: "carrot"}},
			{ID: 2, Unlocked: false},
		},
		Items: []protocol.ItemStack{{ItemID: 7, Count: 4}, {ItemID: protocol.ItemFertilizer, Count: 2}},
	})
	return m
}

func TestApplyLogin_SeedsSnapshot(t *testing.T) {
	m := seededModel()

	p := m.Player()
	assert.Equal(t, "u1", p.UID)
	assert.Equal(t, 12, p.Level)
	assert.InDelta(t, 0.25, p.LevelProgress(), 1e-9)

	lands := m.Lands()
	require.Len(t, lands, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{lands[0].ID, lands[1].ID, lands[2].ID}, "ascending id order")
	require.NotNil(t, lands[0].Plant)
	assert.Equal(t, "carrot", lands[0].Plant.CropName)
	assert.False(t, lands[1].Unlocked)

	assert.Equal(t, 4, m.ItemCount(7))
	assert.Equal(t, 2, m.ItemCount(protocol.ItemFertilizer))
	assert.Equal(t, 0, m.ItemCount(999))
}

func TestApplyLands_WholesaleReplace(t *testing.T) {
	m := seededModel()

	// Land 1 comes back empty: the plant subtree must be dropped, not merged.
	m.ApplyLands([]protocol.LandInfo{{ID: 1, Unlocked: true}})

	lands := m.Lands()
	require.Len(t, lands, 3, "unnamed lands keep their previous state")
	assert.Nil(t, lands[0].Plant)
	assert.False(t, lands[1].Unlocked, "land 2 untouched")
}

func TestApplyLand_NilIsNoop(t *testing.T) {
	m := seededModel()
	m.ApplyLand(nil)
	assert.Len(t, m.Lands(), 3)

	m.ApplyLand(&protocol.LandInfo{ID: 2, Unlocked: true})
	assert.True(t, m.Lands()[1].Unlocked)
}

func TestItemAndPlayerMutators(t *testing.T) {
	m := seededModel()

	m.AddExp(700)
	assert.Equal(t, int64(1000), m.Player().Exp)

	m.SetGold(4200)
	assert.Equal(t, int64(4200), m.Player().Gold)

	m.AddItem(7, 3)
	assert.Equal(t, 7, m.ItemCount(7))
	m.SetItemCount(7, 0)
	assert.Equal(t, 0, m.ItemCount(7))
}

func TestCropCatalog(t *testing.T) {
	m := seededModel()
	m.SetCrops([]protocol.CropInfo{
		{ID: 9, Name: "pumpkin", LevelRequired: 10, SeedPrice: 50, GrowSeconds: 600, HarvestExp: 30, FruitID: 109},
		{ID: 1, Name: "radish", LevelRequired: 1, SeedPrice: 5, GrowSeconds: 300, HarvestExp: 6, FruitID: 101},
	})

	crops := m.Crops()
	require.Len(t, crops, 2)
	assert.Equal(t, "radish", crops[0].Name, "sorted by id")

	c, ok := m.Crop(9)
	require.True(t, ok)
	assert.Equal(t, int64(600), c.GrowSeconds)
	_, ok = m.Crop(12345)
	assert.False(t, ok)
}
