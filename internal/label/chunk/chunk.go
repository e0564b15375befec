// Package chunk splits ordered records into grid-sized groups.
package chunk

import (
	"labelforge/internal/catalog/models"
	dErrors "labelforge/pkg/domain-errors"
)

// Slot is one grid position. A nil Record is an empty slot.
type Slot struct {
	Index  int
	Record *models.NormalizedRecord
}

func (s Slot) Empty() bool {
	return s.Record == nil
}

// Chunk is one grid's worth of slots, always exactly slotsPerChunk long.
type Chunk struct {
	Index int
	Slots []Slot
}

// Records returns the occupied slots' records in slot order.
func (c Chunk) Records() []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, 0, len(c.Slots))
	for _, s := range c.Slots {
		if !s.Empty() {
			out = append(out, *s.Record)
		}
	}
	return out
}

// Rows returns the source row numbers of the occupied slots.
func (c Chunk) Rows() []int {
	out := make([]int, 0, len(c.Slots))
	for _, s := range c.Slots {
		if !s.Empty() {
			out = append(out, s.Record.Row)
		}
	}
	return out
}

// Split groups records in order. The last chunk is padded with empty slots.
// No records yields no chunks.
func Split(records []models.NormalizedRecord, slotsPerChunk int) ([]Chunk, error) {
	if slotsPerChunk <= 0 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "slots per chunk must be positive, got %d", slotsPerChunk)
	}
	n := (len(records) + slotsPerChunk - 1) / slotsPerChunk
	chunks := make([]Chunk, n)
	for ci := range chunks {
		slots := make([]Slot, slotsPerChunk)
		for si := range slots {
			slots[si].Index = si
			if ri := ci*slotsPerChunk + si; ri < len(records) {
				rec := records[ri]
				slots[si].Record = &rec
			}
		}
		chunks[ci] = Chunk{Index: ci, Slots: slots}
	}
	return chunks, nil
}

// Flatten concatenates the occupied slots of chunks in chunk then slot order.
func Flatten(chunks []Chunk) []models.NormalizedRecord {
	var out []models.NormalizedRecord
	for _, c := range chunks {
		out = append(out, c.Records()...)
	}
	return out
}
