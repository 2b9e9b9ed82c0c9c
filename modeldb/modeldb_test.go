package modeldb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consortia-dev/consortia/modeldb"
)

func openManifest(t *testing.T) *modeldb.DB {
	t.Helper()
	db, err := modeldb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	return db
}

func TestAddAndRecords(t *testing.T) {
	db := openManifest(t)

	require.NoError(t, db.Add(modeldb.Record{Rank: "genus", Name: "Escherichia", Ref: "growth:ec"}))
	require.NoError(t, db.Add(modeldb.Record{Rank: "genus", Name: "Bacteroides", Ref: "producer:bt"}))
	// Duplicates are ignored, rank prefixes and case are normalized away.
	require.NoError(t, db.Add(modeldb.Record{Rank: "genus", Name: "g__escherichia", Ref: "growth:ec"}))

	recs, err := db.Records("genus")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "bacteroides", recs[0].Name)
	require.Equal(t, "escherichia", recs[1].Name)

	recs, err = db.Records("species")
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestAdd_Validation(t *testing.T) {
	db := openManifest(t)

	err := db.Add(modeldb.Record{Rank: "genus", Name: "Escherichia"})
	require.ErrorIs(t, err, modeldb.ErrBadRecord)

	err = db.Add(modeldb.Record{Rank: "breed", Name: "x", Ref: "r"})
	require.ErrorIs(t, err, modeldb.ErrBadRank)

	_, err = db.Records("breed")
	require.ErrorIs(t, err, modeldb.ErrBadRank)
}

func TestLookup(t *testing.T) {
	db := openManifest(t)
	require.NoError(t, db.Add(modeldb.Record{Rank: "genus", Name: "Escherichia", Ref: "growth:ec1"}))
	require.NoError(t, db.Add(modeldb.Record{Rank: "genus", Name: "Escherichia", Ref: "growth:ec2"}))
	require.NoError(t, db.Add(modeldb.Record{Rank: "genus", Name: "Bacteroides", Ref: "producer:bt"}))

	queries := []modeldb.Query{
		{ID: "ec", Abundance: 0.5, Lineage: map[string]string{"genus": "g__Escherichia"}},
		{ID: "bt", Abundance: 0.3, Lineage: map[string]string{"genus": "Bacteroides"}},
		{ID: "mystery", Abundance: 0.2, Lineage: map[string]string{"genus": "Unknownia"}},
	}

	m, err := db.Lookup("genus", queries)
	require.NoError(t, err)
	require.Len(t, m.Taxa, 2)
	require.Equal(t, []string{"mystery"}, m.Unmatched)
	require.InDelta(t, 0.8, m.AbundanceFraction, 1e-12)

	// All refs filed under the name travel with the taxon.
	require.Equal(t, "ec", m.Taxa[0].ID)
	require.Equal(t, 0.5, m.Taxa[0].Abundance)
	require.Equal(t, []string{"growth:ec1", "growth:ec2"}, m.Taxa[0].Refs)
}

func TestLookup_Errors(t *testing.T) {
	db := openManifest(t)
	require.NoError(t, db.Add(modeldb.Record{Rank: "genus", Name: "Escherichia", Ref: "growth:ec"}))

	_, err := db.Lookup("breed", nil)
	require.ErrorIs(t, err, modeldb.ErrBadRank)

	// No lineage entry at the rank, or no manifest entry: nothing matches.
	_, err = db.Lookup("genus", []modeldb.Query{
		{ID: "a", Abundance: 1, Lineage: map[string]string{"genus": "Unknownia"}},
		{ID: "b", Abundance: 1, Lineage: map[string]string{"species": "whoever"}},
	})
	require.ErrorIs(t, err, modeldb.ErrNoMatches)
}
