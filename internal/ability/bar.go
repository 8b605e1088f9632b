package ability

import (
	"sync"
	"time"

	"arkengard.com/ability-bot-go/internal/cv"
)

// BarMapping tracks which ability occupies which slot of an ability bar.
// The bar region is partitioned into equal-width slots at construction.
type BarMapping struct {
	mu sync.RWMutex

	Bar   cv.Region
	Slots []cv.Region

	assignments    map[int]string
	lastScan       time.Time
	rescanInterval time.Duration
}

// NewBarMapping partitions the bar region into slotCount equal slots.
func NewBarMapping(bar cv.Region, slotCount int, rescanInterval time.Duration) *BarMapping {
	return &BarMapping{
		Bar:            bar,
		Slots:          bar.SplitHorizontal(slotCount),
		assignments:    make(map[int]string),
		rescanInterval: rescanInterval,
	}
}

// SlotCount returns the number of slots.
func (bm *BarMapping) SlotCount() int {
	return len(bm.Slots)
}

// Slot returns the region for a slot index.
func (bm *BarMapping) Slot(index int) (cv.Region, bool) {
	if index < 0 || index >= len(bm.Slots) {
		return cv.Region{}, false
	}
	return bm.Slots[index], true
}

// Bind records that an ability occupies a slot. Rebinding is allowed; a
// later scan may find a different ability scoring higher there after the
// player rearranges the bar.
func (bm *BarMapping) Bind(index int, abilityName string) bool {
	if index < 0 || index >= len(bm.Slots) {
		return false
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.assignments[index] = abilityName
	return true
}

// AbilityAt returns the ability currently believed to occupy a slot.
func (bm *BarMapping) AbilityAt(index int) (string, bool) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	name, ok := bm.assignments[index]
	return name, ok
}

// Assignments returns a copy of the slot → ability map.
func (bm *BarMapping) Assignments() map[int]string {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	out := make(map[int]string, len(bm.assignments))
	for k, v := range bm.assignments {
		out[k] = v
	}
	return out
}

// MarkScanned stamps the last scan time.
func (bm *BarMapping) MarkScanned(t time.Time) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.lastScan = t
}

// LastScan returns when the bar was last scanned.
func (bm *BarMapping) LastScan() time.Time {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return bm.lastScan
}

// NeedsRescan reports whether the rescan interval has elapsed since the
// last scan. A never-scanned bar always needs one.
func (bm *BarMapping) NeedsRescan(now time.Time) bool {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	if bm.lastScan.IsZero() {
		return true
	}
	return now.Sub(bm.lastScan) >= bm.rescanInterval
}

// Clear drops all slot assignments and the scan timestamp.
func (bm *BarMapping) Clear() {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.assignments = make(map[int]string)
	bm.lastScan = time.Time{}
}
