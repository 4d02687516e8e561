package assets

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/schedule-maker-go/internal/db"
)

func setupTestDB(t *testing.T) (*Repository, *db.DBPair) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	return NewRepository(dbPair), dbPair
}

func TestRepository_InsertAndGet(t *testing.T) {
	repo, _ := setupTestDB(t)

	name := "banner.png"
	id, err := repo.Insert(&name, "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	require.NotZero(t, id)

	img, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, img)
	require.Equal(t, "data:image/png;base64,aGVsbG8=", img.Data)
	require.NotNil(t, img.Name)
	require.Equal(t, "banner.png", *img.Name)
	require.Nil(t, img.Key)

	missing, err := repo.GetByID(9999)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRepository_GetByIDs(t *testing.T) {
	repo, _ := setupTestDB(t)

	first, err := repo.Insert(nil, "data:image/png;base64,Zmlyc3Q=")
	require.NoError(t, err)
	second, err := repo.Insert(nil, "data:image/png;base64,c2Vjb25k")
	require.NoError(t, err)

	images, err := repo.GetByIDs([]int64{first, second, 9999})
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Equal(t, "data:image/png;base64,Zmlyc3Q=", images[first].Data)

	empty, err := repo.GetByIDs(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestRepository_KeyedRoundTrip(t *testing.T) {
	repo, _ := setupTestDB(t)

	// NULL-key upload rows never collide with the keyed upsert.
	_, err := repo.Insert(nil, "data:image/png;base64,YQ==")
	require.NoError(t, err)
	_, err = repo.Insert(nil, "data:image/png;base64,Yg==")
	require.NoError(t, err)

	require.NoError(t, repo.PutKeyed("settings/abc", "data:image/png;base64,b25l"))
	// Same key overwrites.
	require.NoError(t, repo.PutKeyed("settings/abc", "data:image/png;base64,dHdv"))

	urls, err := repo.GetKeyed([]string{"settings/abc", "settings/missing"})
	require.NoError(t, err)
	require.Len(t, urls, 1)
	require.Equal(t, "data:image/png;base64,dHdv", urls["settings/abc"])

	require.NoError(t, repo.DeleteKeyed([]string{"settings/abc"}))
	urls, err = repo.GetKeyed([]string{"settings/abc"})
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestRepository_DeleteUnreferenced(t *testing.T) {
	repo, dbPair := setupTestDB(t)

	orphan, err := repo.Insert(nil, "data:image/png;base64,b3JwaGFu")
	require.NoError(t, err)
	dayRef, err := repo.Insert(nil, "data:image/png;base64,ZGF5")
	require.NoError(t, err)
	propRef, err := repo.Insert(nil, "data:image/png;base64,cHJvcA==")
	require.NoError(t, err)
	require.NoError(t, repo.PutKeyed("settings/kept", "data:image/png;base64,a2VwdA=="))

	// Reference one image from a day row and one from component props.
	_, err = dbPair.Writer().Exec(`
		INSERT INTO schedules (name, week_anchor, created_at, updated_at)
		VALUES ('s', '2026-09-01', datetime('now'), datetime('now'))
	`)
	require.NoError(t, err)
	_, err = dbPair.Writer().Exec(`
		INSERT INTO schedule_days (schedule_id, day, image_id, created_at, updated_at)
		VALUES (1, 'mon', ?, datetime('now'), datetime('now'))
	`, dayRef)
	require.NoError(t, err)
	_, err = dbPair.Writer().Exec(`
		INSERT INTO components (schedule_id, kind, created_at, updated_at)
		VALUES (1, 'image', datetime('now'), datetime('now'))
	`)
	require.NoError(t, err)
	_, err = dbPair.Writer().Exec(`
		INSERT INTO component_props (component_id, kind, data, created_at, updated_at)
		VALUES (1, 'image', json_object('imageId', ?), datetime('now'), datetime('now'))
	`, propRef)
	require.NoError(t, err)

	deleted, err := repo.DeleteUnreferenced()
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	gone, err := repo.GetByID(orphan)
	require.NoError(t, err)
	require.Nil(t, gone)

	for _, id := range []int64{dayRef, propRef} {
		kept, err := repo.GetByID(id)
		require.NoError(t, err)
		require.NotNil(t, kept)
	}

	keyed, err := repo.GetKeyed([]string{"settings/kept"})
	require.NoError(t, err)
	require.Len(t, keyed, 1)
}
