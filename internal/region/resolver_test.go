package region

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

func scenarioStores() []types.Store {
	var stores []types.Store
	for i := 0; i < 5; i++ {
		stores = append(stores, types.Store{ID: fmt.Sprintf("bj-%d", i), Province: "北京", City: "北京"})
	}
	for i := 0; i < 6; i++ {
		stores = append(stores, types.Store{ID: fmt.Sprintf("sz-%d", i), Province: "广东", City: "深圳"})
	}
	for i := 0; i < 4; i++ {
		stores = append(stores, types.Store{ID: fmt.Sprintf("gz-%d", i), Province: "广东", City: "广州"})
	}
	return stores
}

func TestProvincesRanked_ByCount(t *testing.T) {
	assert.Equal(t, []string{"广东", "北京"}, ProvincesRanked(scenarioStores()))
}

func TestProvincesRanked_TieKeepsFirstSeen(t *testing.T) {
	stores := []types.Store{
		{Province: "上海"}, {Province: "北京"}, {Province: "北京"}, {Province: "上海"}, {Province: "天津"},
	}
	assert.Equal(t, []string{"上海", "北京", "天津"}, ProvincesRanked(stores))
}

func TestProvincesRanked_SkipsBlank(t *testing.T) {
	stores := []types.Store{{Province: ""}, {Province: "  "}, {Province: "浙江"}}
	assert.Equal(t, []string{"浙江"}, ProvincesRanked(stores))
}

func TestAllowedCities(t *testing.T) {
	stores := scenarioStores()
	assert.Equal(t, []string{"深圳", "北京", "广州"}, AllowedCities(stores, nil))
	assert.Equal(t, []string{"北京"}, AllowedCities(stores, types.NewSet("北京")))
	assert.Equal(t, []string{"深圳", "广州"}, AllowedCities(stores, types.NewSet("广东")))
	assert.Empty(t, AllowedCities(stores, types.NewSet("西藏")))
}

func TestCityOptions_Counts(t *testing.T) {
	opts := CityOptions(scenarioStores(), types.NewSet("广东"))
	assert.Equal(t, []Option{{Name: "深圳", Count: 6}, {Name: "广州", Count: 4}}, opts)
}

func TestPruneCities(t *testing.T) {
	stores := scenarioStores()
	cities := types.NewSet("深圳", "北京")
	pruned := PruneCities(stores, types.NewSet("北京"), cities)
	assert.Equal(t, []string{"北京"}, pruned.Sorted())
	assert.Equal(t, 2, cities.Len(), "input must not be modified")

	assert.Equal(t, 0, PruneCities(stores, types.NewSet("北京"), nil).Len())
}

func TestStoreTypesAndServiceTags(t *testing.T) {
	stores := []types.Store{
		{Brand: types.BrandDJI, StoreType: "授权体验店", ServiceTags: []string{"维修", "以旧换新"}},
		{Brand: types.BrandDJI, StoreType: "ARS", ServiceTags: []string{"维修"}},
		{Brand: types.BrandInsta, StoreType: "直营店", ServiceTags: []string{" "}},
		{Brand: types.BrandDJI, StoreType: ""},
	}
	assert.ElementsMatch(t, []string{"授权体验店", "ARS"}, StoreTypes(stores, types.BrandDJI))
	assert.Equal(t, []string{"直营店"}, StoreTypes(stores, types.BrandInsta))
	assert.ElementsMatch(t, []string{"维修", "以旧换新"}, ServiceTags(stores))
}
