package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

func provinceStores() []types.Store {
	return []types.Store{
		{ID: "s1", Province: "广东", City: "深圳市", MallID: "m-store"},
		{ID: "s2", Province: "广西", City: "深圳", MallID: "m-store"}, // bad data, loses first-seen
		{ID: "s3", Province: "广东", City: "深圳"},
		{ID: "s4", Province: "北京", City: "朝阳区"},
		{ID: "s5", Province: "", City: "杭州"},
	}
}

func TestInfer_OwnFieldWins(t *testing.T) {
	idx := NewProvinceIndex(provinceStores())
	got := idx.Infer(types.Mall{MallID: "m-store", Province: "上海", City: "深圳"})
	assert.Equal(t, "上海", got)
}

func TestInfer_FromStoreInMall(t *testing.T) {
	idx := NewProvinceIndex(provinceStores())
	got := idx.Infer(types.Mall{MallID: "m-store", City: "杭州"})
	assert.Equal(t, "广东", got)
}

func TestInfer_FromCityMajority(t *testing.T) {
	idx := NewProvinceIndex(provinceStores())
	assert.Equal(t, "广东", idx.Infer(types.Mall{MallID: "x", City: "深圳市"}))
	assert.Equal(t, "北京", idx.Infer(types.Mall{MallID: "y", City: "朝阳"}))
}

func TestInfer_Unknown(t *testing.T) {
	idx := NewProvinceIndex(provinceStores())
	// 杭州 only has a store with a blank province.
	assert.Equal(t, UnknownProvince, idx.Infer(types.Mall{MallID: "z", City: "杭州"}))
	assert.Equal(t, UnknownProvince, idx.Infer(types.Mall{}))

	var nilIdx *ProvinceIndex
	assert.Equal(t, UnknownProvince, nilIdx.Infer(types.Mall{City: "深圳"}))
}

func TestLookupsAreIndependent(t *testing.T) {
	idx := NewProvinceIndex(provinceStores())

	_, ok := OwnProvince(types.Mall{Province: "  "})
	assert.False(t, ok)

	p, ok := idx.FromStores(types.Mall{MallID: "m-store"})
	require.True(t, ok)
	assert.Equal(t, "广东", p)

	_, ok = idx.FromCity(types.Mall{City: ""})
	assert.False(t, ok)
}

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, "深圳", NormalizeCity(" 深圳市 "))
	assert.Equal(t, "朝阳", NormalizeCity("朝阳区"))
	assert.Equal(t, "市", NormalizeCity("市"))
	assert.Equal(t, "香港", NormalizeCity("香港"))
}

func TestGroupByProvince(t *testing.T) {
	idx := NewProvinceIndex(provinceStores())
	malls := []types.Mall{
		{MallID: "a", Province: "北京"},
		{MallID: "b", City: "深圳"},
		{MallID: "c", City: "深圳"},
		{MallID: "d"},
	}
	groups := GroupByProvince(malls, idx)
	require.Len(t, groups, 3)
	assert.Equal(t, "广东", groups[0].Province)
	assert.Len(t, groups[0].Malls, 2)
	assert.Equal(t, "北京", groups[1].Province)
	assert.Equal(t, UnknownProvince, groups[2].Province)
}
