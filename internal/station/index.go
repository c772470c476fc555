package station

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// IndexOptions control loading and the derived quality subset.
type IndexOptions struct {
	// CapabilityCutoff is the year a data type must still report at for a
	// capability flag to hold. Zero means CapabilityCutoffYear.
	CapabilityCutoff int

	// QualityRecency is the year at least one data type must report through
	// for a station to join the quality subset. Zero means QualityRecencyYear.
	QualityRecency int

	// Country restricts the index to stations matching this country code.
	// Empty means no restriction.
	Country string
}

func (o IndexOptions) withDefaults() IndexOptions {
	if o.CapabilityCutoff == 0 {
		o.CapabilityCutoff = CapabilityCutoffYear
	}
	if o.QualityRecency == 0 {
		o.QualityRecency = QualityRecencyYear
	}
	return o
}

// Index holds the full station list and its precomputed quality subset.
// The lists are replaced wholesale on Reload and are otherwise read-only, so
// concurrent queries need no coordination beyond the swap lock.
type Index struct {
	mu      sync.RWMutex
	opts    IndexOptions
	path    string
	all     []Record
	quality []Record
	logger  *zap.SugaredLogger
}

// NewIndex loads a station index from a JSON array file.
func NewIndex(path string, opts IndexOptions, logger *zap.SugaredLogger) (*Index, error) {
	idx := &Index{
		opts:   opts.withDefaults(),
		path:   path,
		logger: logger,
	}
	if err := idx.Reload(); err != nil {
		return nil, err
	}
	return idx, nil
}

// NewIndexFromRecords builds an index from an already-loaded record list.
func NewIndexFromRecords(records []Record, opts IndexOptions, logger *zap.SugaredLogger) *Index {
	idx := &Index{
		opts:   opts.withDefaults(),
		logger: logger,
	}
	idx.replace(records)
	return idx
}

// Reload re-reads the station file and swaps in the new list. Queries running
// against the previous list keep their snapshot.
func (i *Index) Reload() error {
	if i.path == "" {
		return fmt.Errorf("station index has no backing file")
	}

	data, err := os.ReadFile(i.path)
	if err != nil {
		return fmt.Errorf("reading station file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing station file %s: %w", i.path, err)
	}

	i.replace(records)

	i.mu.RLock()
	defer i.mu.RUnlock()
	i.logger.Infof("loaded %d stations (%d quality) from %s", len(i.all), len(i.quality), i.path)
	return nil
}

func (i *Index) replace(records []Record) {
	opts := i.opts

	all := make([]Record, 0, len(records))
	for _, r := range records {
		if opts.Country != "" && r.CountryCode() != opts.Country {
			continue
		}
		all = append(all, r)
	}

	quality := computeQuality(all, opts.CapabilityCutoff, opts.QualityRecency)

	i.mu.Lock()
	i.all = all
	i.quality = quality
	i.mu.Unlock()
}

// computeQuality derives the quality subset. It is a pure function of the
// full list and the thresholds, recomputed whenever either changes.
func computeQuality(all []Record, capabilityCutoff, qualityRecency int) []Record {
	quality := make([]Record, 0, len(all)/4)
	for _, r := range all {
		if r.IsQuality(capabilityCutoff, qualityRecency) {
			quality = append(quality, r)
		}
	}
	return quality
}

// All returns the full station list. Callers must treat it as read-only.
func (i *Index) All() []Record {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.all
}

// Quality returns the precomputed quality subset for the index's configured
// thresholds. Callers must treat it as read-only.
func (i *Index) Quality() []Record {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.quality
}

// QualityAt recomputes the quality subset for different thresholds without
// touching the cached one.
func (i *Index) QualityAt(capabilityCutoff, qualityRecency int) []Record {
	return computeQuality(i.All(), capabilityCutoff, qualityRecency)
}
