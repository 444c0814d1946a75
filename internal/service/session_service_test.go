package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/audio"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/repository/prefs"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/logger"
	"github.com/tejashwikalptaru/tunestream/internal/testutil"
	"go.uber.org/goleak"
)

func TestSessionService_InitialState(t *testing.T) {
	f := newSessionFixture(t)

	state := f.session.State()
	assert.Nil(t, state.CurrentSong)
	assert.Equal(t, -1, state.CurrentIndex)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, int64(1), state.DurationMillis)
	assert.Empty(t, state.Songs)
	assert.Empty(t, state.Queue)
}

func TestSessionService_SetCurrentSong(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))
	song := f.session.State().Songs[3]

	require.NoError(t, f.session.SetCurrentSong(ctx, song))

	state := f.session.State()
	require.NotNil(t, state.CurrentSong)
	assert.Equal(t, song.ID, state.CurrentSong.ID)
	assert.Equal(t, 3, state.CurrentIndex)
	assert.True(t, state.IsPlaying)
	assert.Len(t, state.Songs, 20)
	assertIndexInvariant(t, state)

	// best quality variant is chosen
	assert.Equal(t, streamURL(song.ID), f.transport.LoadedURI())
	assert.True(t, f.transport.IsPlaying())

	note, _ := f.notifier.last()
	assert.Equal(t, shown{song.Name, "Artist " + song.ID}, note)

	started := f.events.ofType(domain.EventSongStarted)
	require.Len(t, started, 1)
	assert.Equal(t, 3, started[0].(domain.SongStartedEvent).Index)
	assert.False(t, started[0].(domain.SongStartedEvent).Local)

	f.session.Flush()
	last, ok, err := f.repo.LoadLastPlayed()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, song.ID, last.Song.ID)
	assert.Equal(t, 3, last.Index)
}

func TestSessionService_SetCurrentSong_DurationFromTransport(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.SetCurrentSong(context.Background(), createTestSong("a")))

	f.transport.Progress(42 * time.Second)

	waitFor(t, func() bool {
		state := f.session.State()
		return state.PositionMillis == 42000 && state.DurationMillis == mock.DefaultDuration.Milliseconds()
	}, "position and duration from transport status")
	assert.NotEmpty(t, f.events.ofType(domain.EventProgress))
}

func TestSessionService_SetCurrentSong_PrependsUnknownSong(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))

	outsider := createTestSong("outsider")
	require.NoError(t, f.session.SetCurrentSong(ctx, outsider))

	state := f.session.State()
	require.Len(t, state.Songs, 21)
	assert.Equal(t, "outsider", state.Songs[0].ID)
	assert.Equal(t, 0, state.CurrentIndex)
	assertIndexInvariant(t, state)
}

func TestSessionService_SetCurrentSong_NoPlayableURI(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	playable := createTestSong("ok")
	require.NoError(t, f.session.SetCurrentSong(ctx, playable))

	silent := domain.Song{ID: "silent", Name: "No audio"}
	require.NoError(t, f.session.SetCurrentSong(ctx, silent))

	state := f.session.State()
	assert.Equal(t, "ok", state.CurrentSong.ID)
	assert.Len(t, state.Songs, 1)
	assert.Equal(t, []string{streamURL("ok")}, f.transport.Loads())

	unavailable := f.events.ofType(domain.EventPlaybackUnavailable)
	require.Len(t, unavailable, 1)
	assert.Equal(t, "silent", unavailable[0].(domain.PlaybackUnavailableEvent).Song.ID)
}

func TestSessionService_SetCurrentSong_PrefersLocalFile(t *testing.T) {
	f := newSessionFixture(t)
	f.local.add("a", "/data/downloads/a.mp3")

	require.NoError(t, f.session.SetCurrentSong(context.Background(), createTestSong("a")))

	assert.Equal(t, "/data/downloads/a.mp3", f.transport.LoadedURI())
	started := f.events.ofType(domain.EventSongStarted)
	require.Len(t, started, 1)
	assert.True(t, started[0].(domain.SongStartedEvent).Local)
}

func TestSessionService_SetCurrentSong_FallsBackToFirstVariant(t *testing.T) {
	f := newSessionFixture(t)

	song := domain.Song{ID: "odd", Audio: []domain.MediaVariant{
		{Quality: "hifi", URL: "https://cdn.test/odd_hifi.flac"},
		{Quality: "lofi", URL: "https://cdn.test/odd_lofi.mp4"},
	}}
	require.NoError(t, f.session.SetCurrentSong(context.Background(), song))

	assert.Equal(t, "https://cdn.test/odd_hifi.flac", f.transport.LoadedURI())
}

func TestSessionService_SetCurrentSong_LoadFailure(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.SetCurrentSong(ctx, createTestSong("good")))

	f.transport.SetFailLoad(streamURL("bad"), errors.New("connection reset"))
	err := f.session.SetCurrentSong(ctx, createTestSong("bad"))

	var serviceErr *domain.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "SetCurrentSong", serviceErr.Op)

	// nothing is committed for a failed load, and the unloaded transport is not playing
	state := f.session.State()
	assert.Equal(t, "good", state.CurrentSong.ID)
	assert.False(t, state.IsPlaying)
	assert.Empty(t, f.transport.LoadedURI())

	paused := f.events.ofType(domain.EventPlaybackPaused)
	require.Len(t, paused, 1)
	assert.Equal(t, "good", paused[0].(domain.PlaybackPausedEvent).Song.ID)
	_, cleared := f.notifier.last()
	assert.Equal(t, 1, cleared)

	// resuming reloads the current song
	require.NoError(t, f.session.TogglePlay(ctx))
	assert.True(t, f.session.State().IsPlaying)
	assert.Equal(t, streamURL("good"), f.transport.LoadedURI())
}

func TestSessionService_LatestLoadWins(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	slow := createTestSong("slow")
	fast := createTestSong("fast")
	f.transport.SetLoadDelay(streamURL("slow"), 80*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.session.SetCurrentSong(ctx, slow))
	}()

	// the slow load is in flight before the fast one is issued
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.session.SetCurrentSong(ctx, fast))
	wg.Wait()

	state := f.session.State()
	assert.Equal(t, "fast", state.CurrentSong.ID)
	assert.Equal(t, streamURL("fast"), f.transport.LoadedURI())
}

func TestSessionService_LatestLoadWins_ManyOverlappingCalls(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	songs := createTestSongs("tap", 12)

	for i, song := range songs {
		// earlier taps take longer to load
		f.transport.SetLoadDelay(streamURL(song.ID), time.Duration(len(songs)-i)*5*time.Millisecond)
	}

	var wg sync.WaitGroup
	for _, song := range songs {
		wg.Add(1)
		go func(song domain.Song) {
			defer wg.Done()
			assert.NoError(t, f.session.SetCurrentSong(ctx, song))
		}(song)
	}
	wg.Wait()

	state := f.session.State()
	require.NotNil(t, state.CurrentSong)
	assert.Equal(t, streamURL(state.CurrentSong.ID), f.transport.LoadedURI())
	assertIndexInvariant(t, state)
}

func TestSessionService_RecentlyPlayed(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "A", "C"} {
		require.NoError(t, f.session.SetCurrentSong(ctx, createTestSong(id)))
	}

	ids := lo.Map(f.session.State().RecentlyPlayed, func(s domain.Song, _ int) string { return s.ID })
	assert.Equal(t, []string{"C", "A", "B"}, ids)

	f.session.Flush()
	saved, ok, err := f.repo.LoadRecentlyPlayed()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, saved, 3)
	assert.Equal(t, "C", saved[0].ID)
}

func TestSessionService_RecentlyPlayedIsBounded(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	for _, song := range createTestSongs("r", 15) {
		require.NoError(t, f.session.SetCurrentSong(ctx, song))
	}

	recent := f.session.State().RecentlyPlayed
	require.Len(t, recent, 10)
	assert.Equal(t, "r-14", recent[0].ID)
	assert.Equal(t, "r-05", recent[9].ID)
}

func TestSessionService_TogglePlay(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	// no current song
	require.NoError(t, f.session.TogglePlay(ctx))
	assert.Empty(t, f.events.ofType(domain.EventPlaybackPaused))

	require.NoError(t, f.session.SetCurrentSong(ctx, createTestSong("a")))

	require.NoError(t, f.session.TogglePlay(ctx))
	assert.False(t, f.session.State().IsPlaying)
	assert.False(t, f.transport.IsPlaying())
	_, cleared := f.notifier.last()
	assert.Equal(t, 1, cleared)
	require.Len(t, f.events.ofType(domain.EventPlaybackPaused), 1)

	require.NoError(t, f.session.TogglePlay(ctx))
	assert.True(t, f.session.State().IsPlaying)
	assert.True(t, f.transport.IsPlaying())

	// resumed in place, no reload
	assert.Len(t, f.transport.Loads(), 1)
	resumed := f.events.ofType(domain.EventPlaybackResumed)
	require.Len(t, resumed, 1)
	assert.False(t, resumed[0].(domain.PlaybackResumedEvent).Reloaded)
}

func TestSessionService_TogglePlay_ReloadsWhenTransportMovedOn(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.SetCurrentSong(ctx, createTestSong("a")))
	require.NoError(t, f.session.TogglePlay(ctx))

	// something else took over the transport
	require.NoError(t, f.transport.Load(ctx, "https://elsewhere.test/other.mp4"))

	require.NoError(t, f.session.TogglePlay(ctx))

	assert.Equal(t, streamURL("a"), f.transport.LoadedURI())
	assert.True(t, f.session.State().IsPlaying)
	resumed := f.events.ofType(domain.EventPlaybackResumed)
	require.Len(t, resumed, 1)
	assert.True(t, resumed[0].(domain.PlaybackResumedEvent).Reloaded)
}

func TestSessionService_PlayNextAndPrevious(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.catalog.set("three", createTestSongs("t", 3))
	require.NoError(t, f.session.FetchSongs(ctx, "three", 0))

	// nothing to navigate from yet
	require.NoError(t, f.session.PlayNext(ctx))
	assert.Nil(t, f.session.State().CurrentSong)

	songs := f.session.State().Songs
	require.NoError(t, f.session.SetCurrentSong(ctx, songs[0]))

	require.NoError(t, f.session.PlayPrevious(ctx))
	assert.Equal(t, "t-00", f.session.State().CurrentSong.ID)

	require.NoError(t, f.session.PlayNext(ctx))
	require.NoError(t, f.session.PlayNext(ctx))
	assert.Equal(t, "t-02", f.session.State().CurrentSong.ID)

	// end of list
	require.NoError(t, f.session.PlayNext(ctx))
	assert.Equal(t, "t-02", f.session.State().CurrentSong.ID)
	assert.Equal(t, 2, f.session.State().CurrentIndex)

	require.NoError(t, f.session.PlayPrevious(ctx))
	assert.Equal(t, "t-01", f.session.State().CurrentSong.ID)
	assert.Len(t, f.transport.Loads(), 4)
}

func TestSessionService_QueuePreemptsNavigation(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))
	require.NoError(t, f.session.SetCurrentSong(ctx, f.session.State().Songs[5]))
	f.session.SetShuffleEnabled(true)

	f.session.AddToQueue(createTestSong("q1"))
	f.session.AddToQueue(createTestSong("q2"))

	require.NoError(t, f.session.PlayNext(ctx))

	state := f.session.State()
	assert.Equal(t, "q1", state.CurrentSong.ID)
	require.Len(t, state.Queue, 1)
	assert.Equal(t, "q2", state.Queue[0].ID)
	assertIndexInvariant(t, state)

	// previous never consumes the queue
	require.NoError(t, f.session.PlayPrevious(ctx))
	assert.Len(t, f.session.State().Queue, 1)
}

func TestSessionService_ShuffleNavigation(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	// deterministic order: reverse
	f.session.permutation = func(n int) []int {
		out := lo.Range(n)
		slices.Reverse(out)
		return out
	}

	f.catalog.set("four", createTestSongs("s", 4))
	require.NoError(t, f.session.FetchSongs(ctx, "four", 0))
	f.session.SetShuffleEnabled(true)
	assert.Equal(t, []int{3, 2, 1, 0}, f.session.State().ShuffledIndices)

	require.NoError(t, f.session.SetCurrentSong(ctx, f.session.State().Songs[2]))

	require.NoError(t, f.session.PlayNext(ctx))
	assert.Equal(t, "s-01", f.session.State().CurrentSong.ID)
	require.NoError(t, f.session.PlayNext(ctx))
	assert.Equal(t, "s-00", f.session.State().CurrentSong.ID)

	// last slot of the permutation
	require.NoError(t, f.session.PlayNext(ctx))
	assert.Equal(t, "s-00", f.session.State().CurrentSong.ID)

	require.NoError(t, f.session.PlayPrevious(ctx))
	require.NoError(t, f.session.PlayPrevious(ctx))
	require.NoError(t, f.session.PlayPrevious(ctx))
	assert.Equal(t, "s-03", f.session.State().CurrentSong.ID)

	// first slot of the permutation
	require.NoError(t, f.session.PlayPrevious(ctx))
	assert.Equal(t, "s-03", f.session.State().CurrentSong.ID)

	f.session.SetShuffleEnabled(false)
	assert.Nil(t, f.session.State().ShuffledIndices)
	require.Len(t, f.events.ofType(domain.EventShuffleToggled), 2)
}

func TestSessionService_ShuffleIsPermutation(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))
	f.session.SetShuffleEnabled(true)
	assert.ElementsMatch(t, lo.Range(20), f.session.State().ShuffledIndices)

	require.NoError(t, f.session.LoadMoreSongs(ctx))
	assert.ElementsMatch(t, lo.Range(40), f.session.State().ShuffledIndices)

	// prepending an unknown song extends the permutation too
	require.NoError(t, f.session.SetCurrentSong(ctx, createTestSong("extra")))
	assert.ElementsMatch(t, lo.Range(41), f.session.State().ShuffledIndices)
}

func TestSessionService_PaginationScenario(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))
	state := f.session.State()
	assert.Len(t, state.Songs, 20)
	assert.Equal(t, 45, state.TotalSongs)
	assert.Equal(t, 0, state.CurrentPage)
	assert.Equal(t, "arijit", state.CurrentQuery)

	require.NoError(t, f.session.LoadMoreSongs(ctx))
	state = f.session.State()
	assert.Len(t, state.Songs, 40)
	assert.Equal(t, 1, state.CurrentPage)
	assert.Len(t, lo.UniqBy(state.Songs, func(s domain.Song) string { return s.ID }), 40)

	require.NoError(t, f.session.LoadMoreSongs(ctx))
	state = f.session.State()
	assert.Len(t, state.Songs, 45)
	assert.Equal(t, 2, state.CurrentPage)

	calls := len(f.catalog.searches())
	require.NoError(t, f.session.LoadMoreSongs(ctx))
	after := f.session.State()
	assert.Len(t, after.Songs, 45)
	assert.Equal(t, 2, after.CurrentPage)
	assert.Equal(t, 45, after.TotalSongs)
	assert.Len(t, f.catalog.searches(), calls)

	for _, call := range f.catalog.searches() {
		assert.Equal(t, 20, call.limit)
	}
}

func TestSessionService_LoadMoreWithoutQuery(t *testing.T) {
	f := newSessionFixture(t)

	require.NoError(t, f.session.LoadMoreSongs(context.Background()))
	assert.Empty(t, f.catalog.searches())
}

func TestSessionService_FetchPageAppendsOnlyNewSongs(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	// the second page repeats the tail of the first
	songs := createTestSongs("o", 20)
	songs = append(songs, createTestSongs("o", 25)[15:]...)
	f.catalog.set("overlap", songs)

	require.NoError(t, f.session.FetchSongs(ctx, "overlap", 0))
	require.NoError(t, f.session.FetchSongs(ctx, "overlap", 1))

	state := f.session.State()
	require.Len(t, state.Songs, 25)
	assert.Equal(t, "o-19", state.Songs[19].ID)
	assert.Equal(t, "o-20", state.Songs[20].ID)
	assert.Equal(t, "o-24", state.Songs[24].ID)
	assert.Len(t, lo.UniqBy(state.Songs, func(s domain.Song) string { return s.ID }), 25)
	assert.Equal(t, 1, state.CurrentPage)
}

func TestSessionService_FetchPageZeroKeepsCurrentSongAddressable(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))
	require.NoError(t, f.session.SetCurrentSong(ctx, f.session.State().Songs[7]))

	f.catalog.set("other", createTestSongs("other", 5))
	require.NoError(t, f.session.FetchSongs(ctx, "other", 0))

	state := f.session.State()
	assert.Len(t, state.Songs, 6)
	assert.Equal(t, "arijit-07", state.Songs[0].ID)
	assertIndexInvariant(t, state)
	assert.Equal(t, "other", state.CurrentQuery)
	assert.Equal(t, 5, state.TotalSongs)
}

func TestSessionService_FetchFailure(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	boom := errors.New("catalog down")
	f.catalog.fail(boom)

	err := f.session.FetchSongs(ctx, "arijit", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var serviceErr *domain.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "FetchSongs", serviceErr.Op)

	state := f.session.State()
	assert.False(t, state.Loading)
	assert.False(t, state.LoadingMore)
	assert.Empty(t, state.Songs)
}

func TestSessionService_LoadingFlags(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	release := f.catalog.hold("arijit")
	done := make(chan error, 1)
	go func() { done <- f.session.FetchSongs(ctx, "arijit", 0) }()

	waitFor(t, func() bool { return f.session.State().Loading }, "loading flag set")

	// guarded while a fetch is in flight
	require.NoError(t, f.session.LoadMoreSongs(ctx))

	release()
	require.NoError(t, <-done)

	state := f.session.State()
	assert.False(t, state.Loading)
	assert.Len(t, state.Songs, 20)
	assert.Len(t, f.catalog.searches(), 1)
}

func TestSessionService_StaleFetchIsDiscarded(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.catalog.set("old", createTestSongs("old", 5))
	f.catalog.set("new", createTestSongs("new", 5))
	release := f.catalog.hold("old")

	done := make(chan error, 1)
	go func() { done <- f.session.FetchSongs(ctx, "old", 0) }()
	waitFor(t, func() bool { return len(f.catalog.searches()) == 1 }, "old search issued")

	require.NoError(t, f.session.FetchSongs(ctx, "new", 0))
	release()
	require.NoError(t, <-done)

	state := f.session.State()
	assert.Equal(t, "new", state.CurrentQuery)
	assert.Equal(t, "new-00", state.Songs[0].ID)
	assert.False(t, state.Loading)
}

func TestSessionService_Seek(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	// no current song
	require.NoError(t, f.session.Seek(ctx, 0.5))
	assert.Empty(t, f.transport.Seeks())

	require.NoError(t, f.session.SetCurrentSong(ctx, createTestSong("a")))
	waitFor(t, func() bool { return f.session.State().DurationMillis > 1 }, "duration reported")
	duration := f.session.State().DurationMillis

	require.NoError(t, f.session.Seek(ctx, 0))
	assert.Equal(t, int64(0), f.session.State().PositionMillis)

	require.NoError(t, f.session.Seek(ctx, 1))
	assert.Equal(t, duration, f.session.State().PositionMillis)

	require.NoError(t, f.session.Seek(ctx, 0.5))
	assert.Equal(t, duration/2, f.session.State().PositionMillis)

	assert.Equal(t, []time.Duration{0, mock.DefaultDuration, mock.DefaultDuration / 2}, f.transport.Seeks())

	assert.ErrorIs(t, f.session.Seek(ctx, 1.5), domain.ErrInvalidPosition)
	assert.ErrorIs(t, f.session.Seek(ctx, -0.1), domain.ErrInvalidPosition)
	assert.Equal(t, duration/2, f.session.State().PositionMillis)
}

func TestSessionService_QueueOperations(t *testing.T) {
	f := newSessionFixture(t)

	for _, id := range []string{"a", "b", "c", "b"} {
		f.session.AddToQueue(createTestSong(id))
	}
	queueIDs := func() []string {
		return lo.Map(f.session.State().Queue, func(s domain.Song, _ int) string { return s.ID })
	}
	assert.Equal(t, []string{"a", "b", "c", "b"}, queueIDs())

	f.session.RemoveFromQueue("b")
	assert.Equal(t, []string{"a", "c"}, queueIDs())

	f.session.AddToQueue(createTestSong("d"))
	f.session.ReorderQueue(2, 0)
	assert.Equal(t, []string{"d", "a", "c"}, queueIDs())

	f.session.ReorderQueue(0, 3)
	f.session.ReorderQueue(-1, 0)
	assert.Equal(t, []string{"d", "a", "c"}, queueIDs())

	f.session.Flush()
	saved, ok, err := f.repo.LoadQueue()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"d", "a", "c"}, lo.Map(saved, func(s domain.Song, _ int) string { return s.ID }))

	f.session.ClearQueue()
	assert.Empty(t, f.session.State().Queue)

	f.session.Flush()
	_, ok, err = f.repo.LoadQueue()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NotEmpty(t, f.events.ofType(domain.EventQueueChanged))
}

func TestSessionService_PlayFromQueue(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.session.AddToQueue(createTestSong("a"))
	f.session.AddToQueue(createTestSong("b"))
	f.session.AddToQueue(createTestSong("c"))

	require.NoError(t, f.session.PlayFromQueue(ctx, 5))
	assert.Len(t, f.session.State().Queue, 3)

	require.NoError(t, f.session.PlayFromQueue(ctx, 1))
	state := f.session.State()
	assert.Equal(t, "b", state.CurrentSong.ID)
	assert.Equal(t, []string{"a", "c"}, lo.Map(state.Queue, func(s domain.Song, _ int) string { return s.ID }))
}

func TestSessionService_AutoAdvanceOnFinish(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))
	require.NoError(t, f.session.SetCurrentSong(ctx, f.session.State().Songs[0]))

	f.transport.Finish()

	waitFor(t, func() bool {
		state := f.session.State()
		return state.CurrentSong.ID == "arijit-01" && state.IsPlaying
	}, "advance to the next song")
	assert.Equal(t, streamURL("arijit-01"), f.transport.LoadedURI())

	finished := f.events.ofType(domain.EventPlaybackFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, "arijit-00", finished[0].(domain.PlaybackFinishedEvent).Song.ID)
	assert.True(t, finished[0].(domain.PlaybackFinishedEvent).Next)
}

func TestSessionService_FinishAtEndOfList(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.SetCurrentSong(context.Background(), createTestSong("only")))

	f.transport.Finish()

	waitFor(t, func() bool { return len(f.events.ofType(domain.EventPlaybackFinished)) == 1 }, "finished event")
	finished := f.events.ofType(domain.EventPlaybackFinished)[0].(domain.PlaybackFinishedEvent)
	assert.False(t, finished.Next)
	assert.False(t, f.session.State().IsPlaying)
	assert.Len(t, f.transport.Loads(), 1)
}

func TestSessionService_AutoAdvancePrefersQueue(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))
	require.NoError(t, f.session.SetCurrentSong(ctx, f.session.State().Songs[0]))
	f.session.AddToQueue(createTestSong("queued"))

	f.transport.Finish()

	waitFor(t, func() bool { return f.session.State().CurrentSong.ID == "queued" }, "play the queued song")
	assert.Empty(t, f.session.State().Queue)
}

func TestSessionService_IgnoresForeignStatuses(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.SetCurrentSong(context.Background(), createTestSong("a")))

	f.transport.Emit(domain.TransportStatus{URI: "https://cdn.test/other.mp4", IsLoaded: true, PositionMillis: 9000, DurationMillis: 10000})
	f.transport.Emit(domain.TransportStatus{URI: streamURL("a"), IsLoaded: false, PositionMillis: 7000})
	f.transport.Emit(domain.TransportStatus{URI: "https://cdn.test/other.mp4", IsLoaded: true, DidJustFinish: true})
	f.transport.Emit(domain.TransportStatus{URI: streamURL("a"), IsLoaded: true, PositionMillis: 1234, DurationMillis: 0})

	waitFor(t, func() bool { return f.session.State().PositionMillis == 1234 }, "own status applied")

	state := f.session.State()
	assert.Equal(t, int64(1), state.DurationMillis)
	assert.Equal(t, "a", state.CurrentSong.ID)
	assert.Len(t, f.transport.Loads(), 1)
}

func TestSessionService_HydratePlayer(t *testing.T) {
	repo := prefs.NewSessionRepository(test.NewApp().Preferences())
	song := createTestSong("arijit-10")
	song.Artists.Primary = []domain.Artist{{Name: "arijit"}}
	require.NoError(t, repo.SaveLastPlayed(domain.LastPlayed{Song: song, Index: 10}))

	f := newSessionFixtureWithRepo(t, repo)
	ctx := context.Background()

	require.NoError(t, f.session.HydratePlayer(ctx))

	state := f.session.State()
	require.NotNil(t, state.CurrentSong)
	assert.Equal(t, "arijit-10", state.CurrentSong.ID)
	assert.False(t, state.IsPlaying)
	assertIndexInvariant(t, state)
	assert.Empty(t, f.transport.Loads())

	// seeded from the primary artist
	calls := f.catalog.searches()
	require.Len(t, calls, 1)
	assert.Equal(t, "arijit", calls[0].query)
	assert.Len(t, state.Songs, 20)
	assert.Equal(t, 10, state.CurrentIndex)

	// resuming loads the restored song
	require.NoError(t, f.session.TogglePlay(ctx))
	assert.Equal(t, streamURL("arijit-10"), f.transport.LoadedURI())
	assert.True(t, f.session.State().IsPlaying)
}

func TestSessionService_HydratePlayer_FallbackQuery(t *testing.T) {
	repo := prefs.NewSessionRepository(test.NewApp().Preferences())
	song := createTestSong("lonely")
	song.Artists = domain.ArtistCredits{}
	require.NoError(t, repo.SaveLastPlayed(domain.LastPlayed{Song: song, Index: 0}))

	f := newSessionFixtureWithRepo(t, repo)
	require.NoError(t, f.session.HydratePlayer(context.Background()))

	calls := f.catalog.searches()
	require.Len(t, calls, 1)
	assert.Equal(t, "arijit", calls[0].query)

	state := f.session.State()
	assert.Equal(t, "lonely", state.Songs[0].ID)
	assertIndexInvariant(t, state)
}

func TestSessionService_HydratePlayer_NothingSaved(t *testing.T) {
	f := newSessionFixture(t)

	require.NoError(t, f.session.HydratePlayer(context.Background()))
	assert.Nil(t, f.session.State().CurrentSong)
	assert.Empty(t, f.catalog.searches())
}

func TestSessionService_HydrateLists(t *testing.T) {
	prefsStore := test.NewApp().Preferences()
	repo := prefs.NewSessionRepository(prefsStore)
	require.NoError(t, repo.SaveRecentlyPlayed([]domain.Song{createTestSong("r1"), createTestSong("r2")}))
	require.NoError(t, repo.SaveQueue([]domain.Song{createTestSong("q1")}))

	f := newSessionFixtureWithRepo(t, repo)
	f.session.HydrateRecentlyPlayed()
	f.session.HydrateQueue()

	state := f.session.State()
	assert.Equal(t, []string{"r1", "r2"}, lo.Map(state.RecentlyPlayed, func(s domain.Song, _ int) string { return s.ID }))
	assert.Equal(t, []string{"q1"}, lo.Map(state.Queue, func(s domain.Song, _ int) string { return s.ID }))
}

func TestSessionService_HydrateToleratesCorruptData(t *testing.T) {
	prefsStore := test.NewApp().Preferences()
	prefsStore.SetString("session.recently_played", "{broken")
	prefsStore.SetString("session.queue", "[{")
	prefsStore.SetString("session.last_played", "nope")

	f := newSessionFixtureWithRepo(t, prefs.NewSessionRepository(prefsStore))
	f.session.AddToQueue(createTestSong("kept"))

	f.session.HydrateRecentlyPlayed()
	f.session.HydrateQueue()
	require.NoError(t, f.session.HydratePlayer(context.Background()))

	state := f.session.State()
	assert.Empty(t, state.RecentlyPlayed)
	require.Len(t, state.Queue, 1)
	assert.Equal(t, "kept", state.Queue[0].ID)
	assert.Nil(t, state.CurrentSong)
}

func TestSessionService_NotifierFailureIsSwallowed(t *testing.T) {
	f := newSessionFixture(t)
	f.notifier.err = errors.New("no daemon")
	ctx := context.Background()

	require.NoError(t, f.session.SetCurrentSong(ctx, createTestSong("a")))
	require.NoError(t, f.session.TogglePlay(ctx))
	assert.False(t, f.session.State().IsPlaying)
}

func TestSessionService_StateIsASnapshot(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.FetchSongs(ctx, "arijit", 0))
	require.NoError(t, f.session.SetCurrentSong(ctx, f.session.State().Songs[0]))

	state := f.session.State()
	state.Songs[0].Name = "mutated"
	state.CurrentSong.Name = "mutated"

	fresh := f.session.State()
	assert.NotEqual(t, "mutated", fresh.Songs[0].Name)
	assert.NotEqual(t, "mutated", fresh.CurrentSong.Name)
}

func TestSessionService_IndexInvariantUnderRandomOperations(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	f.catalog.set("small", createTestSongs("small", 8))
	queries := []string{"arijit", "small"}

	for step := 0; step < 300; step++ {
		state := f.session.State()
		switch rng.Intn(9) {
		case 0:
			_ = f.session.FetchSongs(ctx, queries[rng.Intn(len(queries))], 0)
		case 1:
			_ = f.session.LoadMoreSongs(ctx)
		case 2:
			if len(state.Songs) > 0 {
				_ = f.session.SetCurrentSong(ctx, state.Songs[rng.Intn(len(state.Songs))])
			}
		case 3:
			_ = f.session.SetCurrentSong(ctx, createTestSong(fmt.Sprintf("x-%d", rng.Intn(5))))
		case 4:
			_ = f.session.PlayNext(ctx)
		case 5:
			_ = f.session.PlayPrevious(ctx)
		case 6:
			f.session.SetShuffleEnabled(rng.Intn(2) == 0)
		case 7:
			f.session.AddToQueue(createTestSong(fmt.Sprintf("q-%d", rng.Intn(5))))
		case 8:
			_ = f.session.TogglePlay(ctx)
		}

		state = f.session.State()
		assertIndexInvariant(t, state)
		assert.LessOrEqual(t, len(state.RecentlyPlayed), 10)
		if state.ShuffleEnabled {
			require.ElementsMatch(t, lo.Range(len(state.Songs)), state.ShuffledIndices, "step %d", step)
		}
	}
}

func TestSessionService_ShutdownStopsGoroutines(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, goleak.IgnoreCurrent())

	log := logger.NewTestLogger()
	transport := mock.NewTransport()
	bus := eventbus.NewSyncEventBus()
	session := NewSessionService(
		log,
		audio.NewSequenced(transport, log),
		newFakeCatalog(),
		&memorySessionRepo{},
		nil,
		&recordingNotifier{},
		bus,
		DefaultSessionConfig(),
	)

	ctx := context.Background()
	require.NoError(t, session.SetCurrentSong(ctx, createTestSong("a")))
	transport.Finish()
	session.AddToQueue(createTestSong("b"))

	require.NoError(t, session.Shutdown())
	require.NoError(t, session.Shutdown())
	require.NoError(t, transport.Close())
	require.NoError(t, bus.Close())
}

// memorySessionRepo is a goroutine-free SessionRepository for leak tests.
type memorySessionRepo struct {
	mu     sync.Mutex
	last   *domain.LastPlayed
	recent []domain.Song
	queue  []domain.Song
}

func (r *memorySessionRepo) SaveLastPlayed(last domain.LastPlayed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &last
	return nil
}

func (r *memorySessionRepo) LoadLastPlayed() (domain.LastPlayed, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return domain.LastPlayed{}, false, nil
	}
	return *r.last, true, nil
}

func (r *memorySessionRepo) SaveRecentlyPlayed(songs []domain.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recent = songs
	return nil
}

func (r *memorySessionRepo) LoadRecentlyPlayed() ([]domain.Song, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recent, r.recent != nil, nil
}

func (r *memorySessionRepo) SaveQueue(songs []domain.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = songs
	return nil
}

func (r *memorySessionRepo) LoadQueue() ([]domain.Song, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue, r.queue != nil, nil
}

func (r *memorySessionRepo) ClearQueue() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = nil
	return nil
}
