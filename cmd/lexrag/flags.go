package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/filter"
)

// filterFlags collects the metadata filter options shared by search and chat
type filterFlags struct {
	yearFrom int
	yearTo   int
	repealed string
	language string
	keywords internal.StringList
}

func (ff *filterFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&ff.yearFrom, "year-from", 0, "Earliest enactment year (requires -year-to)")
	fs.IntVar(&ff.yearTo, "year-to", 0, "Latest enactment year (requires -year-from)")
	fs.StringVar(&ff.repealed, "repealed", "", `Repeal status: "true" or "false" (default: any)`)
	fs.StringVar(&ff.language, "language", "", "Detected language, e.g. english or bengali")
	fs.Var(&ff.keywords, "keyword", "Act title keyword (repeatable or comma-separated; any may match)")
}

// build returns the filter, or nil when no option was given
func (ff *filterFlags) build() (*filter.Filter, error) {
	f := &filter.Filter{Keywords: ff.keywords}

	switch {
	case ff.yearFrom != 0 && ff.yearTo != 0:
		f.YearRange = &filter.YearRange{From: ff.yearFrom, To: ff.yearTo}
	case ff.yearFrom != 0 || ff.yearTo != 0:
		return nil, fmt.Errorf("-year-from and -year-to must be given together")
	}

	if ff.repealed != "" {
		b, err := strconv.ParseBool(ff.repealed)
		if err != nil {
			return nil, fmt.Errorf("invalid -repealed value %q", ff.repealed)
		}
		f.IsRepealed = filter.Bool(b)
	}

	if ff.language != "" {
		f.Language = filter.Str(ff.language)
	}

	if f.IsEmpty() {
		return nil, nil
	}
	return f, nil
}
