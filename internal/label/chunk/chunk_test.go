package chunk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelforge/internal/catalog/models"
	dErrors "labelforge/pkg/domain-errors"
)

func records(n int) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, n)
	for i := range out {
		out[i] = models.NormalizedRecord{Row: i + 1, Description: fmt.Sprintf("item %d", i)}
	}
	return out
}

func TestSplit_TenRecordsNineSlots(t *testing.T) {
	chunks, err := Split(records(10), 9)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Len(t, chunks[0].Records(), 9)
	assert.Len(t, chunks[1].Slots, 9)

	empty := 0
	for _, s := range chunks[1].Slots {
		if s.Empty() {
			empty++
		}
	}
	assert.Equal(t, 8, empty)
	assert.Equal(t, []int{10}, chunks[1].Rows())
	assert.Equal(t, 1, chunks[1].Index)
}

func TestSplit_RejectsNonPositiveSlots(t *testing.T) {
	for _, k := range []int{0, -3} {
		_, err := Split(records(3), k)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestSplit_FlattenRoundTrip(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for k := 1; k <= 13; k++ {
			recs := records(n)
			chunks, err := Split(recs, k)
			require.NoError(t, err)
			assert.Len(t, chunks, (n+k-1)/k)
			for _, c := range chunks {
				assert.Len(t, c.Slots, k)
			}
			got := Flatten(chunks)
			if n == 0 {
				assert.Empty(t, got)
				continue
			}
			assert.Equal(t, recs, got, "n=%d k=%d", n, k)
		}
	}
}

func TestSplit_DoesNotAliasInput(t *testing.T) {
	recs := records(2)
	chunks, err := Split(recs, 2)
	require.NoError(t, err)
	recs[0].Description = "changed"
	assert.Equal(t, "item 0", chunks[0].Slots[0].Record.Description)
}
