package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "labelforge/internal/catalog/models"
	dErrors "labelforge/pkg/domain-errors"
)

func TestNewOverride(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("PST", -8*3600))

	o, err := NewOverride("blue dream", catalog.LineageSativa, 0.4, true, now)
	require.NoError(t, err)
	assert.Equal(t, 1.0, o.Confidence, "sovereign overrides are certain")
	assert.Equal(t, time.UTC, o.UpdatedAt.Location())

	_, err = NewOverride(" ", catalog.LineageSativa, 1, false, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewOverride("gsc", catalog.Lineage("PURPLE"), 1, false, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewOverride("gsc", catalog.LineageIndica, 1.2, false, now)
	assert.Error(t, err)
}

func TestOverride_Replaces(t *testing.T) {
	learned := Override{Strain: "gsc", Lineage: catalog.LineageIndica}
	sovereign := Override{Strain: "gsc", Lineage: catalog.LineageSativa, Sovereign: true}

	assert.True(t, learned.Replaces(learned))
	assert.True(t, sovereign.Replaces(learned))
	assert.True(t, sovereign.Replaces(sovereign))
	assert.False(t, learned.Replaces(sovereign))
}

func TestCollapse(t *testing.T) {
	a := Override{Strain: "a", Lineage: catalog.LineageSativa}
	aSov := Override{Strain: "a", Lineage: catalog.LineageIndica, Sovereign: true}
	aLater := Override{Strain: "a", Lineage: catalog.LineageHybrid}
	b := Override{Strain: "b", Lineage: catalog.LineageCBD}
	b2 := Override{Strain: "b", Lineage: catalog.LineageMixed}

	got := Collapse([]Override{a, b, aSov, aLater, b2})
	assert.Equal(t, []Override{aSov, b2}, got)
	assert.Empty(t, Collapse(nil))
}
