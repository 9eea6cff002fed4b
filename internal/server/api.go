package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/classify"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/dataset"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/ranking"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/region"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// api serves the read-only REST endpoints over a loaded dataset.
type api struct {
	data   *dataset.Dataset
	logger *zap.Logger
	now    func() time.Time
}

// RegionsResponse is the option lists for the region and store-type pickers.
type RegionsResponse struct {
	Provinces       []region.Option `json:"provinces"`
	Cities          []region.Option `json:"cities"`
	DJIStoreTypes   []string        `json:"dji_store_types"`
	InstaStoreTypes []string        `json:"insta_store_types"`
	ServiceTags     []string        `json:"service_tags"`
}

// MallsResponse is a ranked, filtered mall list.
type MallsResponse struct {
	Malls      []filter.TaggedMall      `json:"malls"`
	Groups     []classify.ProvinceGroup `json:"groups"`
	ChipCounts map[classify.Label]int   `json:"chip_counts"`
}

// MallDetail is a mall with its classification and the stores inside it.
type MallDetail struct {
	filter.TaggedMall
	Stores []types.Store `json:"stores"`
}

func (a *api) routes(r chi.Router) {
	r.Get("/regions", a.regions)
	r.Get("/malls", a.malls)
	r.Get("/malls/{id}", a.mall)
	r.Get("/stores/{id}", a.store)
}

// regions handles GET /api/regions?province=a,b.
func (a *api) regions(w http.ResponseWriter, r *http.Request) {
	stores := a.data.Stores()
	provinces := types.NewSet(parseList(r, "province")...)
	a.writeJSON(w, http.StatusOK, RegionsResponse{
		Provinces:       region.ProvinceOptions(stores),
		Cities:          region.CityOptions(stores, provinces),
		DJIStoreTypes:   region.StoreTypes(stores, types.BrandDJI),
		InstaStoreTypes: region.StoreTypes(stores, types.BrandInsta),
		ServiceTags:     region.ServiceTags(stores),
	})
}

// malls handles GET /api/malls?chip=&tags=&status=&province=&city=&q=.
// Unknown chips and tags are rejected; it runs the same filter the
// dashboard does on a throwaway store.
func (a *api) malls(w http.ResponseWriter, r *http.Request) {
	st := filter.New(a.data.Stores(), a.data.Malls())

	var patch filter.Patch
	if p := parseList(r, "province"); len(p) > 0 {
		set := types.NewSet(p...)
		patch.Province = &set
	}
	if c := parseList(r, "city"); len(c) > 0 {
		set := types.NewSet(c...)
		patch.City = &set
	}
	if s := parseList(r, "status"); len(s) > 0 {
		set := types.NewSet[types.MallStatus]()
		for _, v := range s {
			set = set.With(types.MallStatus(v))
		}
		patch.MallStatuses = &set
	}
	st.UpdateFilters(patch)

	if raw := r.URL.Query().Get("chip"); raw != "" {
		chip, ok := classify.ParseLabel(raw)
		if !ok {
			a.writeError(w, http.StatusBadRequest, "INVALID_CHIP", "unknown chip: "+raw)
			return
		}
		st.ToggleChip(chip)
	}
	tags := types.NewSet[classify.Label]()
	for _, raw := range parseList(r, "tags") {
		if _, ok := classify.LookupTag(classify.Label(raw)); !ok {
			a.writeError(w, http.StatusBadRequest, "INVALID_TAG", "unknown tag: "+raw)
			return
		}
		tags = tags.With(classify.Label(raw))
	}
	// The throwaway store starts with no tags, so one toggle per tag selects it.
	for _, tag := range tags.Sorted() {
		st.ToggleMallTag(tag)
	}
	st.SetMallKeyword(r.URL.Query().Get("q"))

	res := st.View(a.now())
	a.writeJSON(w, http.StatusOK, MallsResponse{
		Malls:      res.Malls,
		Groups:     res.MallGroups,
		ChipCounts: res.ChipCounts,
	})
}

// mall handles GET /api/malls/{id}.
func (a *api) mall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := a.data.MallByID(id)
	if err != nil {
		a.notFound(w, err)
		return
	}
	idx := classify.NewProvinceIndex(a.data.Stores())
	a.writeJSON(w, http.StatusOK, MallDetail{
		TaggedMall: filter.TaggedMall{
			Mall:             m,
			InferredProvince: idx.Infer(m),
			Classification:   classify.Classify(m),
			Priority:         ranking.Priority(m),
		},
		Stores: a.data.StoresInMall(id),
	})
}

// store handles GET /api/stores/{id}.
func (a *api) store(w http.ResponseWriter, r *http.Request) {
	s, err := a.data.StoreByID(chi.URLParam(r, "id"))
	if err != nil {
		a.notFound(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, s)
}

func (a *api) notFound(w http.ResponseWriter, err error) {
	if errors.Is(err, dataset.ErrNotFound) {
		a.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	a.logger.Error("lookup failed", zap.Error(err))
	a.writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}
