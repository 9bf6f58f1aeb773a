package alerts

import (
	"time"
)

// Eviction horizons. A schedule key must survive its calendar date and a
// price key its calendar hour; anything older can never be re-checked.
const (
	scheduleKeyTTL = 48 * time.Hour
	priceKeyTTL    = 2 * time.Hour
)

// dedupState tracks which alerts have already fired. Schedule keys are
// "HH:MM_YYYY-MM-DD" (one firing per rule per calendar date); price keys are
// "SYMBOL_YYYY-MM-DD_HH" (one firing per symbol per calendar hour). The two
// granularities differ on purpose.
type dedupState struct {
	scheduleFired map[string]time.Time
	priceFired    map[string]time.Time
}

func newDedupState() *dedupState {
	return &dedupState{
		scheduleFired: make(map[string]time.Time),
		priceFired:    make(map[string]time.Time),
	}
}

func (d *dedupState) seenSchedule(key string) bool {
	_, ok := d.scheduleFired[key]
	return ok
}

func (d *dedupState) recordSchedule(key string, at time.Time) {
	d.scheduleFired[key] = at
}

func (d *dedupState) seenPrice(key string) bool {
	_, ok := d.priceFired[key]
	return ok
}

func (d *dedupState) recordPrice(key string, at time.Time) {
	d.priceFired[key] = at
}

// evict drops entries older than their calendar unit so the maps stay
// bounded over a long-lived process.
func (d *dedupState) evict(now time.Time) {
	for key, at := range d.scheduleFired {
		if now.Sub(at) > scheduleKeyTTL {
			delete(d.scheduleFired, key)
		}
	}
	for key, at := range d.priceFired {
		if now.Sub(at) > priceKeyTTL {
			delete(d.priceFired, key)
		}
	}
}
