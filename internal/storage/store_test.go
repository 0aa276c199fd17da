package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raine/reseller-assistant/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testListing(title string) *llm.ListingRecord {
	return &llm.ListingRecord{
		SuggestedTitle:     title,
		SuggestedListPrice: "$65 AUD",
		QuickSellPrice:     "$45 AUD",
		MarketStockStatus:  llm.MarketStockStatus{Ebay: "No Stock", Gumtree: "In Stock", CashConverters: "No Stock"},
		Keywords:           []string{"drill", "ryobi"},
	}
}

func TestNewSQLiteStore_RestrictsFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveAndGetDraft(t *testing.T) {
	store := newTestStore(t)

	draft := &Draft{
		Source:    SourceWeb,
		Owner:     "sid-1",
		Location:  "Richmond",
		Listing:   testListing("Ryobi drill"),
		Citations: []llm.Citation{{Title: "eBay AU", URI: "https://ebay.com.au/x"}},
	}
	require.NoError(t, store.SaveDraft(draft))
	assert.NotEmpty(t, draft.ID)
	assert.False(t, draft.CreatedAt.IsZero())

	got, err := store.GetDraft(draft.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, SourceWeb, got.Source)
	assert.Equal(t, "sid-1", got.Owner)
	assert.Equal(t, "Richmond", got.Location)
	assert.Equal(t, "Ryobi drill", got.Listing.SuggestedTitle)
	assert.Equal(t, "No Stock", got.Listing.MarketStockStatus.Ebay)
	assert.Equal(t, []string{"drill", "ryobi"}, got.Listing.Keywords)
	assert.Equal(t, draft.Citations, got.Citations)
	assert.NotEmpty(t, got.Listing.Raw)
}

func TestGetDraft_NotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetDraft("missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveDraft_RequiresListing(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SaveDraft(&Draft{Owner: "sid-1"}))
}

func TestSaveDraft_NilCitationsStoredAsEmpty(t *testing.T) {
	store := newTestStore(t)

	draft := &Draft{Source: SourceCLI, Owner: "cli", Location: "Carlton", Listing: testListing("Lamp")}
	require.NoError(t, store.SaveDraft(draft))

	got, err := store.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Citations)
}

func TestListDrafts_NewestFirstPerOwner(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, store.SaveDraft(&Draft{
			Source:    SourceTelegram,
			Owner:     "42",
			Location:  "Fitzroy",
			Listing:   testListing(title),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.SaveDraft(&Draft{
		Source:    SourceWeb,
		Owner:     "other",
		Location:  "Fitzroy",
		Listing:   testListing("someone else"),
		CreatedAt: base.Add(time.Hour),
	}))

	drafts, err := store.ListDrafts("42", 2)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "third", drafts[0].Listing.SuggestedTitle)
	assert.Equal(t, "second", drafts[1].Listing.SuggestedTitle)

	all, err := store.ListDrafts("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "someone else", all[0].Listing.SuggestedTitle)
}

func TestDeleteDraft(t *testing.T) {
	store := newTestStore(t)

	draft := &Draft{Source: SourceWeb, Owner: "sid-1", Location: "Richmond", Listing: testListing("Kettle")}
	require.NoError(t, store.SaveDraft(draft))
	require.NoError(t, store.DeleteDraft(draft.ID))

	got, err := store.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is not an error
	assert.NoError(t, store.DeleteDraft(draft.ID))
}

func TestLocation(t *testing.T) {
	store := newTestStore(t)

	loc, err := store.GetLocation(42)
	require.NoError(t, err)
	assert.Equal(t, "", loc)

	require.NoError(t, store.SetLocation(42, "Brunswick"))
	require.NoError(t, store.SetLocation(42, "Northcote"))

	loc, err = store.GetLocation(42)
	require.NoError(t, err)
	assert.Equal(t, "Northcote", loc)
}

func TestAllowedUsers(t *testing.T) {
	store := newTestStore(t)

	allowed, err := store.IsUserAllowed(7)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, store.AddAllowedUser(7, 1))
	require.NoError(t, store.AddAllowedUser(7, 1))
	require.NoError(t, store.AddAllowedUser(8, 1))

	allowed, err = store.IsUserAllowed(7)
	require.NoError(t, err)
	assert.True(t, allowed)

	users, err := store.GetAllowedUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].AddedBy)

	require.NoError(t, store.RemoveAllowedUser(7))
	allowed, err = store.IsUserAllowed(7)
	require.NoError(t, err)
	assert.False(t, allowed)
}
