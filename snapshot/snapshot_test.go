package snapshot_test

import (
	"testing"
	"time"

	"f0oster/zbxsync/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSourceFiltersAndPartitions(t *testing.T) {
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []snapshot.Equipment{
		{ID: 1, Name: "sw-core", Network: "praha", DateMod: modified},
		{ID: 2, Name: "sw-edge", Network: "brno", DateMod: modified},
		{ID: 3, Name: "sw-template", Network: "praha", IsTemplate: true},
		{ID: 4, Name: "sw-gone", Network: "praha", IsDeleted: true},
		{ID: 5, Name: "sw-other", Network: "ostrava", DateMod: modified},
	}

	snap := snapshot.BuildSource(items, []string{"praha", "brno"})

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, []string{"zbx-brno", "zbx-praha"}, snap.Partitions())
	assert.Equal(t, []string{"sw-core"}, snap.PartitionNames("zbx-praha"))

	rec, ok := snap.Record("sw-core")
	require.True(t, ok)
	assert.Equal(t, 1, rec.ID)
	assert.Equal(t, "sw-core", rec.ParentName)
	assert.Equal(t, "zbx-praha", rec.Partition)
	assert.Equal(t, modified, rec.LastModified)

	_, ok = snap.Record("sw-other")
	assert.False(t, ok, "equipment outside the allow-list must be excluded")
	_, ok = snap.Record("sw-template")
	assert.False(t, ok, "templates must be excluded")
}

func TestBuildSourceKeepsEmptyAllowedPartitions(t *testing.T) {
	snap := snapshot.BuildSource(nil, []string{"praha"})

	assert.Equal(t, []string{"zbx-praha"}, snap.Partitions())
	assert.Empty(t, snap.PartitionNames("zbx-praha"))
}

func TestNewDeduplicatesByName(t *testing.T) {
	snap := snapshot.New([]snapshot.SourceRecord{
		{ID: 1, Name: "sw-core", Partition: "zbx-praha"},
		{ID: 9, Name: "sw-core", Partition: "zbx-brno"},
	})

	require.Equal(t, 1, snap.Len())
	rec, _ := snap.Record("sw-core")
	assert.Equal(t, 1, rec.ID, "first record wins")
}
