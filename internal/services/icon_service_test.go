package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchbox/internal/fsys"
	"launchbox/internal/iconcache"
	"launchbox/internal/metrics"
	"launchbox/internal/testutils"
)

const (
	shortcutsDir = `C:\Users\Admin\Shortcuts`
	appShortcut  = shortcutsDir + `\App.lnk`
	appIconsDir  = shortcutsDir + `\.icons`
	appPNG       = appIconsDir + `\App.png`
	appICO       = appIconsDir + `\App.ico`
)

type iconFixture struct {
	fs        *testutils.MockFileSystem
	extractor *testutils.MockIconExtractor
	clock     *testutils.FakeClock
	logger    *testutils.RecordingLogger
	store     *MockIconStore
	metrics   *metrics.IconMetrics
	svc       *IconService
	t0        time.Time
}

type fixtureOption func(*IconServiceConfig, *iconFixture)

func withStore() fixtureOption {
	return func(cfg *IconServiceConfig, f *iconFixture) {
		f.store = NewMockIconStore()
		cfg.Store = f.store
	}
}

func withMaxIconFileSize(n int64) fixtureOption {
	return func(cfg *IconServiceConfig, _ *iconFixture) {
		cfg.MaxIconFileSize = n
	}
}

func withEnv(env map[string]string) fixtureOption {
	return func(cfg *IconServiceConfig, _ *iconFixture) {
		cfg.LookupEnv = func(name string) (string, bool) {
			v, ok := env[name]
			return v, ok
		}
	}
}

func newIconFixture(t *testing.T, opts ...fixtureOption) *iconFixture {
	t.Helper()

	f := &iconFixture{
		fs:        testutils.NewMockFileSystem(),
		extractor: testutils.NewMockIconExtractor(),
		clock:     testutils.NewFakeClock(),
		logger:    testutils.NewRecordingLogger(),
		metrics:   metrics.New(),
	}
	f.t0 = f.clock.Now().Add(-time.Hour)

	cfg := DefaultIconServiceConfig()
	cfg.Clock = f.clock.Now
	cfg.Metrics = f.metrics
	cfg.LookupEnv = func(string) (string, bool) { return "", false }
	for _, opt := range opts {
		opt(&cfg, f)
	}

	f.svc = NewIconServiceWithConfig(f.fs, f.extractor, cfg, f.logger)
	return f
}

func TestIconService_CustomPNGWinsOverSystemIcon(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(64, 64, 'p'), f.t0)
	f.extractor.SetIcon(appShortcut, []byte("system"))

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, testutils.PNGHeader(64, 64, 'p'), icon)
	assert.Empty(t, f.extractor.Calls())
}

func TestIconService_CacheHitWithinTTLTouchesNothing(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32), f.t0)

	first, ok := f.svc.ExtractIconBytes(appShortcut)
	require.True(t, ok)
	f.fs.ResetCalls()

	second, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Empty(t, f.fs.Ops())

	expected := `
# HELP launchbox_icons_cache_hits_total Icon lookups answered from the in-memory cache.
# TYPE launchbox_icons_cache_hits_total counter
launchbox_icons_cache_hits_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(),
		strings.NewReader(expected), "launchbox_icons_cache_hits_total"))
}

func TestIconService_CacheHitAfterTTLOnlyChecksTimestamps(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32), f.t0)

	_, ok := f.svc.ExtractIconBytes(appShortcut)
	require.True(t, ok)
	f.fs.ResetCalls()
	f.clock.Advance(3 * time.Second)

	_, ok = f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, 1, f.fs.CallsFor(testutils.OpLastWriteTime, appShortcut))
	assert.Equal(t, 1, f.fs.CallsFor(testutils.OpLastWriteTime, appPNG))
	assert.Zero(t, f.fs.Calls(testutils.OpReadFile))
	assert.Zero(t, f.fs.Calls(testutils.OpOpen))
}

func TestIconService_RepeatedLookupsReadTimestampsOnce(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32), f.t0)

	for i := 0; i < 100; i++ {
		_, ok := f.svc.ExtractIconBytes(appShortcut)
		require.True(t, ok)
	}

	assert.LessOrEqual(t, f.fs.Calls(testutils.OpLastWriteTime), 5)
	assert.Equal(t, 1, f.fs.Calls(testutils.OpListFiles))
}

func TestIconService_ChangedCustomIconIsReloaded(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32, 1), f.t0)

	icon, _ := f.svc.ExtractIconBytes(appShortcut)
	assert.Equal(t, testutils.PNGHeader(32, 32, 1), icon)

	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32, 2), f.t0.Add(time.Minute))

	// Still served from the cache until the timestamps expire.
	icon, _ = f.svc.ExtractIconBytes(appShortcut)
	assert.Equal(t, testutils.PNGHeader(32, 32, 1), icon)

	f.clock.Advance(3 * time.Second)
	icon, _ = f.svc.ExtractIconBytes(appShortcut)
	assert.Equal(t, testutils.PNGHeader(32, 32, 2), icon)
}

func TestIconService_PruneCacheDropsMetadataAndStaleEntries(t *testing.T) {
	f := newIconFixture(t)
	other := shortcutsDir + `\Other.lnk`
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(other, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32, 1), f.t0)
	f.extractor.SetIcon(other, []byte("other"))

	f.svc.ExtractIconBytes(appShortcut)
	f.svc.ExtractIconBytes(other)
	require.Equal(t, 2, f.svc.CachedIcons())

	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32, 2), f.t0.Add(time.Minute))

	removed := f.svc.PruneCache([]string{`c:\users\admin\shortcuts\app.lnk`})

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, f.svc.CachedIcons())

	// No clock advance: the new icon is visible because metadata was dropped.
	icon, ok := f.svc.ExtractIconBytes(appShortcut)
	require.True(t, ok)
	assert.Equal(t, testutils.PNGHeader(32, 32, 2), icon)
}

func TestIconService_CustomIconSelection(t *testing.T) {
	tests := []struct {
		name string
		png  []byte
		ico  []byte
		want string
	}{
		{"larger ico wins", testutils.PNGHeader(32, 32), testutils.ICOHeader(16, 256), "ico"},
		{"larger png wins", testutils.PNGHeader(128, 128), testutils.ICOHeader(16, 48), "png"},
		{"png wins ties", testutils.PNGHeader(48, 48), testutils.ICOHeader(48), "png"},
		{"unreadable headers fall back to png", []byte("junk"), []byte("junk"), "png"},
		{"only ico header readable", []byte("junk"), testutils.ICOHeader(16), "ico"},
		{"png only", testutils.PNGHeader(16, 16), nil, "png"},
		{"ico only", nil, testutils.ICOHeader(16), "ico"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIconFixture(t)
			f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
			if tt.png != nil {
				f.fs.AddFile(appPNG, tt.png, f.t0)
			}
			if tt.ico != nil {
				f.fs.AddFile(appICO, tt.ico, f.t0)
			}
			f.extractor.SetIcon(appShortcut, []byte("system"))

			icon, ok := f.svc.ExtractIconBytes(appShortcut)

			require.True(t, ok)
			if tt.want == "png" {
				assert.Equal(t, tt.png, icon)
			} else {
				assert.Equal(t, tt.ico, icon)
			}
			assert.Empty(t, f.extractor.Calls())
		})
	}
}

func TestIconService_OversizedCustomIconIsBlocked(t *testing.T) {
	f := newIconFixture(t, withMaxIconFileSize(64))
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32, make([]byte, 100)...), f.t0)
	f.extractor.SetIcon(appShortcut, []byte("system"))

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, []byte("system"), icon)
	assert.Zero(t, f.fs.CallsFor(testutils.OpReadFile, appPNG))
	assert.Contains(t, f.logger.Output(), "Blocked loading of large icon file")
}

func TestIconService_CustomIconAtLimitIsLoaded(t *testing.T) {
	data := testutils.PNGHeader(32, 32)
	f := newIconFixture(t, withMaxIconFileSize(int64(len(data))))
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, data, f.t0)

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, data, icon)
}

func TestIconService_SystemIconWithoutIconsFolder(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.extractor.SetIcon(appShortcut, []byte("system"))

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, []byte("system"), icon)
	assert.Equal(t, []int{DefaultIconSize}, f.extractor.Sizes())
	assert.Equal(t, 1, f.fs.CallsFor(testutils.OpDirExists, appIconsDir))
	assert.Zero(t, f.fs.Calls(testutils.OpListFiles))
	assert.Zero(t, f.fs.CallsFor(testutils.OpLastWriteTime, appPNG))
	assert.Zero(t, f.fs.CallsFor(testutils.OpLastWriteTime, appICO))
}

func TestIconService_ListingSkipsAbsentCandidates(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appIconsDir+`\app.PNG`, testutils.PNGHeader(8, 8), f.t0)
	f.fs.AddFile(appIconsDir+`\Other.ico`, testutils.ICOHeader(8), f.t0)

	f.svc.ExtractIconBytes(appShortcut)

	// The listing match is case-insensitive, so the PNG candidate is probed.
	assert.Equal(t, 1, f.fs.CallsFor(testutils.OpLastWriteTime, appPNG))
	assert.Zero(t, f.fs.CallsFor(testutils.OpLastWriteTime, appICO))
}

func TestIconService_ListingFailureProbesEveryCandidate(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(16, 16), f.t0)
	f.fs.FailOn(testutils.OpListFiles, errors.New("access denied"))

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, testutils.PNGHeader(16, 16), icon)
	assert.Equal(t, 1, f.fs.CallsFor(testutils.OpLastWriteTime, appPNG))
	assert.Equal(t, 1, f.fs.CallsFor(testutils.OpLastWriteTime, appICO))
}

func TestIconService_MissingIconIsCached(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)

	icon, ok := f.svc.ExtractIconBytes(appShortcut)
	assert.False(t, ok)
	assert.Nil(t, icon)

	icon, ok = f.svc.ExtractIconBytes(appShortcut)
	assert.False(t, ok)
	assert.Nil(t, icon)
	assert.Len(t, f.extractor.Calls(), 1)
}

func TestIconService_TimestampFailureIsRetried(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(32, 32), f.t0)
	f.fs.FailOn(testutils.OpLastWriteTime, fmt.Errorf("stat %s: access denied", appPNG))

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	assert.False(t, ok)
	assert.Nil(t, icon)
	assert.Zero(t, f.fs.Calls(testutils.OpReadFile))
	assert.NotEmpty(t, f.logger.Calls("debug"))
	assert.NotContains(t, f.logger.Output(), "Admin")

	f.fs.FailOn(testutils.OpLastWriteTime, nil)
	f.fs.ResetCalls()

	icon, ok = f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, testutils.PNGHeader(32, 32), icon)
	assert.Equal(t, 1, f.fs.CallsFor(testutils.OpLastWriteTime, appShortcut))
	assert.Equal(t, 1, f.fs.CallsFor(testutils.OpLastWriteTime, appPNG))
}

func TestIconService_ExtractorFailureYieldsNoIcon(t *testing.T) {
	f := newIconFixture(t)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.extractor.SetError(fmt.Errorf("extract %s: failed", appShortcut))

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	assert.False(t, ok)
	assert.Nil(t, icon)
	assert.NotContains(t, f.logger.Output(), "Admin")
}

func TestIconService_UnsafePathIsRejected(t *testing.T) {
	for _, path := range []string{
		`\\attacker\share\App.lnk`,
		`//attacker/share/App.lnk`,
		`\??\UNC\attacker\share\App.lnk`,
	} {
		t.Run(path, func(t *testing.T) {
			f := newIconFixture(t)

			icon, ok := f.svc.ExtractIconBytes(path)

			assert.False(t, ok)
			assert.Nil(t, icon)
			assert.Empty(t, f.fs.Ops())
			assert.Empty(t, f.extractor.Calls())
			assert.NotContains(t, f.logger.Output(), "attacker")

			expected := `
# HELP launchbox_icons_blocked_total Paths refused by validation, by reason.
# TYPE launchbox_icons_blocked_total counter
launchbox_icons_blocked_total{reason="unsafe_path"} 1
`
			assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(),
				strings.NewReader(expected), "launchbox_icons_blocked_total"))
		})
	}
}

func TestIconService_EnvironmentReferencesAreExpanded(t *testing.T) {
	f := newIconFixture(t, withEnv(map[string]string{"SHORTCUTS": shortcutsDir}))
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(appPNG, testutils.PNGHeader(16, 16), f.t0)

	icon, ok := f.svc.ExtractIconBytes(`%SHORTCUTS%\App.lnk`)

	require.True(t, ok)
	assert.Equal(t, testutils.PNGHeader(16, 16), icon)

	// Both spellings share one entry.
	f.fs.ResetCalls()
	_, ok = f.svc.ExtractIconBytes(appShortcut)
	require.True(t, ok)
	assert.Empty(t, f.fs.Ops())
	assert.Equal(t, 1, f.svc.CachedIcons())
}

func TestIconService_ExpansionToUNCIsRejected(t *testing.T) {
	f := newIconFixture(t, withEnv(map[string]string{"SHARE": `\\attacker\share`}))

	_, ok := f.svc.ExtractIconBytes(`%SHARE%\App.lnk`)

	assert.False(t, ok)
	assert.Empty(t, f.fs.Ops())
}

func TestIconService_LogsAreRedacted(t *testing.T) {
	f := newIconFixture(t)
	dir := `C:\Users\Admin\Secret`
	shortcut := dir + `\App.lnk`
	f.fs.AddFile(shortcut, []byte("lnk"), f.t0)
	f.fs.AddFile(dir+`\.icons\App.png`, testutils.PNGHeader(16, 16), f.t0)
	f.fs.FailOn(testutils.OpReadFile, fmt.Errorf(`open %s\.icons\App.png: access denied`, dir))
	f.fs.FailOn(testutils.OpOpen, fmt.Errorf(`open %s: access denied`, dir))

	_, ok := f.svc.ExtractIconBytes(shortcut)
	assert.False(t, ok)

	out := f.logger.Output()
	require.NotEmpty(t, f.logger.Calls("warn"))
	assert.Contains(t, out, `...\App.png`)
	assert.NotContains(t, out, "Admin")
	assert.NotContains(t, out, "Secret")
}

func TestIconService_StoreEntryWithMatchingStampsIsReused(t *testing.T) {
	f := newIconFixture(t, withStore())
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.extractor.SetIcon(appShortcut, []byte("system"))
	f.store.Seed(appShortcut, iconcache.Entry{
		Icon:    []byte("stored"),
		HasIcon: true,
		Stamps:  iconcache.Timestamps{Shortcut: f.t0, PNG: fsys.MissingTime, ICO: fsys.MissingTime},
	})

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, []byte("stored"), icon)
	assert.Empty(t, f.extractor.Calls())

	load, save, _ := f.store.GetCallCounts()
	assert.Equal(t, 1, load)
	assert.Zero(t, save)

	// The reused entry now lives in memory.
	f.svc.ExtractIconBytes(appShortcut)
	load, _, _ = f.store.GetCallCounts()
	assert.Equal(t, 1, load)
}

func TestIconService_StaleStoreEntryIsReplaced(t *testing.T) {
	f := newIconFixture(t, withStore())
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.extractor.SetIcon(appShortcut, []byte("system"))
	f.store.Seed(appShortcut, iconcache.Entry{
		Icon:    []byte("stored"),
		HasIcon: true,
		Stamps:  iconcache.Timestamps{Shortcut: f.t0.Add(-time.Hour), PNG: fsys.MissingTime, ICO: fsys.MissingTime},
	})

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, []byte("system"), icon)

	stored, found := f.store.Stored(appShortcut)
	require.True(t, found)
	assert.Equal(t, []byte("system"), stored.Icon)
	assert.True(t, stored.Stamps.Shortcut.Equal(f.t0))
}

func TestIconService_StoreFailuresAreNotFatal(t *testing.T) {
	f := newIconFixture(t, withStore())
	f.store.SetFailureModes(true, true)
	f.fs.AddFile(appShortcut, []byte("lnk"), f.t0)
	f.extractor.SetIcon(appShortcut, []byte("system"))

	icon, ok := f.svc.ExtractIconBytes(appShortcut)

	require.True(t, ok)
	assert.Equal(t, []byte("system"), icon)
	assert.Contains(t, f.logger.Output(), "Icon store lookup failed")
	assert.Contains(t, f.logger.Output(), "Icon store write failed")
}

func TestIconService_PruneStore(t *testing.T) {
	f := newIconFixture(t, withStore())
	f.store.Seed(appShortcut, iconcache.Entry{})
	f.store.Seed(shortcutsDir+`\Gone.lnk`, iconcache.Entry{})

	removed, err := f.svc.PruneStore(context.Background(), []string{appShortcut})

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, found := f.store.Stored(appShortcut)
	assert.True(t, found)
}

func TestIconService_PruneStoreWithoutStore(t *testing.T) {
	f := newIconFixture(t)

	removed, err := f.svc.PruneStore(context.Background(), []string{appShortcut})

	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestIconService_ExtractAll(t *testing.T) {
	f := newIconFixture(t)
	var paths []string
	for i := 0; i < 20; i++ {
		p := fmt.Sprintf(`%s\App%02d.lnk`, shortcutsDir, i)
		paths = append(paths, p)
		f.fs.AddFile(p, []byte("lnk"), f.t0)
		if i%2 == 0 {
			f.extractor.SetIcon(p, []byte(p))
		}
	}

	results := f.svc.ExtractAll(context.Background(), paths, 4)

	require.Len(t, results, len(paths))
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
		assert.False(t, r.Skipped)
		assert.Equal(t, i%2 == 0, r.OK, r.Path)
		if r.OK {
			assert.Equal(t, []byte(paths[i]), r.Icon)
		}
	}
}

func TestIconService_ExtractAllCancelled(t *testing.T) {
	f := newIconFixture(t)
	paths := []string{appShortcut, shortcutsDir + `\Other.lnk`}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := f.svc.ExtractAll(ctx, paths, 2)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Skipped)
	}
	assert.Empty(t, f.extractor.Calls())
}
