package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/classify"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/region"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

var (
	rankChip         string
	regionsProvinces []string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print malls in competition priority order",
	RunE:  runRank,
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print provinces and cities by store count",
	RunE:  runRegions,
}

func init() {
	rankCmd.Flags().StringVar(&rankChip, "chip", "ALL", "Only malls in this chip category")
	rankCmd.Flags().StringVar(&dataFile, "data", "", "JSON dataset file (overrides the database)")
	regionsCmd.Flags().StringSliceVar(&regionsProvinces, "province", nil, "Restrict cities to these provinces")
	regionsCmd.Flags().StringVar(&dataFile, "data", "", "JSON dataset file (overrides the database)")
}

func runRank(cmd *cobra.Command, args []string) error {
	chip, ok := classify.ParseLabel(rankChip)
	if !ok {
		return fmt.Errorf("unknown chip %q (want one of %s)", rankChip, chipNames())
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	st := filter.New(data.Stores(), data.Malls())
	st.ToggleChip(chip)
	return printMalls(cmd.OutOrStdout(), st.View(time.Now()).Malls)
}

func printMalls(out io.Writer, malls []filter.TaggedMall) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tMALL\tCITY\tPROVINCE\tCHIP\tTAGS")
	for i, m := range malls {
		tags := make([]string, 0, m.Classification.Tags.Len())
		for _, t := range m.Classification.Tags.Sorted() {
			tags = append(tags, string(t))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, m.Mall.MallName, m.Mall.City, m.InferredProvince,
			m.Classification.Chip, strings.Join(tags, ","))
	}
	return w.Flush()
}

func runRegions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	stores := data.Stores()
	return printRegions(cmd.OutOrStdout(),
		region.ProvinceOptions(stores),
		region.CityOptions(stores, types.NewSet(regionsProvinces...)))
}

func printRegions(out io.Writer, provinces, cities []region.Option) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVINCE\tSTORES")
	for _, p := range provinces {
		fmt.Fprintf(w, "%s\t%d\n", p.Name, p.Count)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CITY\tSTORES")
	for _, c := range cities {
		fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Count)
	}
	return w.Flush()
}

func chipNames() string {
	names := make([]string, len(classify.Chips))
	for i, c := range classify.Chips {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
