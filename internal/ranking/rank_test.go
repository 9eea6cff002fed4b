package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

func ids(malls []types.Mall) []string {
	out := make([]string, len(malls))
	for i, m := range malls {
		out[i] = m.MallID
	}
	return out
}

func TestRank_BucketOrder(t *testing.T) {
	malls := []types.Mall{
		{MallID: "both", DJIOpened: true, InstaOpened: true},
		{MallID: "dji", DJIOpened: true},
		{MallID: "insta", InstaOpened: true},
		{MallID: "target", DJITarget: true},
		{MallID: "none"},
		{MallID: "gap", Status: types.StatusGap, DJIOpened: true},
		{MallID: "pt", DJIExclusive: true, DJIOpened: true, InstaOpened: true},
	}
	got := Rank(malls)
	assert.Equal(t, []string{"pt", "gap", "none", "target", "insta", "dji", "both"}, ids(got))
	// input untouched
	assert.Equal(t, "both", malls[0].MallID)
}

func TestRank_CityThenName(t *testing.T) {
	malls := []types.Mall{
		{MallID: "sz-b", City: "深圳", MallName: "万象城"},
		{MallID: "bj", City: "北京", MallName: "国贸商城"},
		{MallID: "sz-a", City: "深圳", MallName: "海岸城"},
	}
	got := Rank(malls)
	// pinyin: 北京 (bei) < 深圳 (shen); 海岸城 (hai) < 万象城 (wan)
	assert.Equal(t, []string{"bj", "sz-a", "sz-b"}, ids(got))
}

func TestRank_StableForEqualKeys(t *testing.T) {
	malls := []types.Mall{
		{MallID: "first", City: "深圳", MallName: "海岸城"},
		{MallID: "second", City: "深圳", MallName: "海岸城"},
		{MallID: "third", City: "深圳", MallName: "海岸城"},
	}
	assert.Equal(t, []string{"first", "second", "third"}, ids(Rank(malls)))
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 0, Priority(types.Mall{DJIExclusive: true}))
	assert.Equal(t, 6, Priority(types.Mall{DJIOpened: true, InstaOpened: true}))
}

func TestSortStores_Newest(t *testing.T) {
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	stores := []types.Store{
		{ID: "undated"},
		{ID: "jan", OpenedAt: &jan},
		{ID: "mar", OpenedAt: &mar},
	}
	got := SortStores(stores, SortNewest)
	require.Len(t, got, 3)
	assert.Equal(t, "mar", got[0].ID)
	assert.Equal(t, "jan", got[1].ID)
	assert.Equal(t, "undated", got[2].ID)
}

func TestSortStores_DefaultKeepsOrder(t *testing.T) {
	stores := []types.Store{{ID: "b"}, {ID: "a"}}
	got := SortStores(stores, SortDefault)
	assert.Equal(t, "b", got[0].ID)
}

func TestSortStores_City(t *testing.T) {
	stores := []types.Store{
		{ID: "gz", Province: "广东", City: "广州"},
		{ID: "bj", Province: "北京", City: "北京"},
		{ID: "sz", Province: "广东", City: "深圳"},
	}
	got := SortStores(stores, SortCity)
	assert.Equal(t, "bj", got[0].ID)
	assert.Equal(t, "gz", got[1].ID)
	assert.Equal(t, "sz", got[2].ID)
}

func TestCollator_Compare(t *testing.T) {
	c := NewCollator()
	assert.Equal(t, -1, c.Compare("北京", "上海"))
	assert.Equal(t, 0, c.Compare("深圳", "深圳"))
	assert.Equal(t, 1, Compare("重庆", "北京"))
}
