package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-notify/wisp/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func testRecord() model.Record {
	return model.Record{
		Schema:    model.SchemaVersion,
		Name:      "water",
		Class:     "reminder",
		Edge:      model.EdgeTop,
		Width:     350,
		Height:    80,
		PID:       os.Getpid(),
		CreatedAt: time.Now().UnixMilli(),
		TimeoutMs: 60_000,
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	s, err := Open(dir, nil)
	require.NoError(t, err)

	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRegister_AssignsID(t *testing.T) {
	s := testStore(t)

	h, err := s.Register(testRecord())
	require.NoError(t, err)
	defer h.Close()

	assert.NotEmpty(t, h.ID())
	assert.FileExists(t, h.Path())
}

func TestRegister_ConcurrentUniqueIDs(t *testing.T) {
	s := testStore(t)

	const n = 50
	var wg sync.WaitGroup
	handles := make([]*Handle, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = s.Register(testRecord())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, n)

	seen := make(map[string]bool)
	for _, rec := range records {
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestRemove_Idempotent(t *testing.T) {
	s := testStore(t)

	h, err := s.Register(testRecord())
	require.NoError(t, err)

	require.NoError(t, s.Remove(h.ID()))
	require.NoError(t, s.Remove(h.ID()), "removing an absent record is not an error")
	require.NoError(t, s.Remove("never-existed"))
}

func TestHandle_CloseRemovesRecord(t *testing.T) {
	s := testStore(t)

	h, err := s.Register(testRecord())
	require.NoError(t, err)

	require.NoError(t, h.Close())
	assert.NoFileExists(t, h.Path())
	require.NoError(t, h.Close(), "close is idempotent")
}

func TestList_SortedByRegistrationOrder(t *testing.T) {
	s := testStore(t)

	first := testRecord()
	first.CreatedAt = 1000
	second := testRecord()
	second.CreatedAt = 2000

	// Register out of order.
	hb, err := s.Register(second)
	require.NoError(t, err)
	defer hb.Close()
	ha, err := s.Register(first)
	require.NoError(t, err)
	defer ha.Close()

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 1000, records[0].CreatedAt)
	assert.EqualValues(t, 2000, records[1].CreatedAt)
}

func TestList_ExcludesDeadOwner(t *testing.T) {
	s := testStore(t)

	alive := testRecord()
	ha, err := s.Register(alive)
	require.NoError(t, err)
	defer ha.Close()

	dead := testRecord()
	dead.PID = 1 << 22 // beyond any plausible pid
	hd, err := s.Register(dead)
	require.NoError(t, err)

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ha.ID(), records[0].ID)

	// The stale record was reclaimed, not just hidden.
	assert.NoFileExists(t, hd.Path())
}

func TestList_ExcludesExpired(t *testing.T) {
	s := testStore(t)

	expired := testRecord()
	expired.CreatedAt = time.Now().Add(-time.Minute).UnixMilli()
	expired.TimeoutMs = 1000
	h, err := s.Register(expired)
	require.NoError(t, err)

	records, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoFileExists(t, h.Path())
}

func TestList_ReapsUndecodableFiles(t *testing.T) {
	s := testStore(t)

	garbage := filepath.Join(s.Dir(), "notarecord.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{{{"), 0600))

	// Files without the record schema are also stale, not fatal.
	alien := filepath.Join(s.Dir(), "alien.json")
	require.NoError(t, os.WriteFile(alien, []byte(`{"foo":1}`), 0600))

	records, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoFileExists(t, garbage)
	assert.NoFileExists(t, alien)
}

func TestList_IgnoresHiddenAndForeignFiles(t *testing.T) {
	s := testStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".wisp-partial"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "README.txt"), []byte("x"), 0600))

	records, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, records)

	// Neither file was reaped: only *.json entries are record candidates.
	assert.FileExists(t, filepath.Join(s.Dir(), ".wisp-partial"))
	assert.FileExists(t, filepath.Join(s.Dir(), "README.txt"))
}

func TestFind_Selectors(t *testing.T) {
	s := testStore(t)

	a := testRecord()
	a.Name = "water"
	a.Class = "reminder"
	ha, err := s.Register(a)
	require.NoError(t, err)
	defer ha.Close()

	b := testRecord()
	b.Name = "coffee"
	b.Class = "reminder"
	hb, err := s.Register(b)
	require.NoError(t, err)
	defer hb.Close()

	t.Run("by name", func(t *testing.T) {
		got, err := s.Find(Selector{By: ByName, Value: "water"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, ha.ID(), got[0].ID)
	})

	t.Run("by class", func(t *testing.T) {
		got, err := s.Find(Selector{By: ByClass, Value: "reminder"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by id", func(t *testing.T) {
		got, err := s.Find(Selector{By: ByID, Value: hb.ID()})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "coffee", got[0].Name)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := s.Find(Selector{By: ByID, Value: "does-not-exist"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty tag never matches", func(t *testing.T) {
		c := testRecord()
		c.Name = ""
		hc, err := s.Register(c)
		require.NoError(t, err)
		defer hc.Close()

		got, err := s.Find(Selector{By: ByName, Value: ""})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestAlive(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
	assert.True(t, Alive(0), "zero pid is treated as alive")
	assert.False(t, Alive(1<<22))
}
