// Package preset holds predefined BRFS volume geometries for the SPI NOR
// flash parts the FPGC hardware project actually ships with.
package preset

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry describes one predefined combination of flash part and BRFS
// volume layout.
type Geometry struct {
	Slug           string `csv:"slug"`
	Name           string `csv:"name"`
	FlashPart      string `csv:"flash_part"`
	FlashSizeBytes uint64 `csv:"flash_size_bytes"`
	TotalBlocks    uint32 `csv:"total_blocks"`
	WordsPerBlock  uint32 `csv:"words_per_block"`
	Notes          string `csv:"notes"`
}

//go:embed geometries.csv
var geometriesRawCSV string

var geometries = map[string]Geometry{}

func init() {
	reader := strings.NewReader(geometriesRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := geometries[row.Slug]; exists {
			return fmt.Errorf("duplicate predefined geometry slug %q", row.Slug)
		}
		geometries[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Get looks up a predefined geometry by slug.
func Get(slug string) (Geometry, error) {
	g, ok := geometries[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined BRFS geometry with slug %q", slug)
	}
	return g, nil
}

// Slugs returns every known preset's slug.
func Slugs() []string {
	out := make([]string, 0, len(geometries))
	for slug := range geometries {
		out = append(out, slug)
	}
	return out
}
