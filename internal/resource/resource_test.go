package resource

import (
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openlaunch/resource-cache/internal/version"
)

func testResource(t *testing.T) *Resource {
	t.Helper()
	u, err := url.Parse("https://example.com/app/lib.jar")
	assert.NoError(t, err)
	return New(u, version.Range{})
}

func TestScheduleWork_FreshResource(t *testing.T) {
	r := testResource(t)

	assert.True(t, r.ScheduleWork())
	assert.True(t, r.IsSet(PreConnect|PreDownload|Processing))

	// A second call sees Processing and must not resubmit.
	assert.False(t, r.ScheduleWork())
}

func TestScheduleWork_CompletedResource(t *testing.T) {
	r := testResource(t)
	r.ChangeStatus(0, Downloaded)

	assert.False(t, r.ScheduleWork())
	assert.False(t, r.IsSet(Processing))
}

func TestScheduleWork_ConnectedNeedsDownloadOnly(t *testing.T) {
	r := testResource(t)
	r.ChangeStatus(0, Connected)

	assert.True(t, r.ScheduleWork())
	assert.False(t, r.IsSet(PreConnect))
	assert.True(t, r.IsSet(PreDownload|Processing))
}

func TestStartConnect_Guards(t *testing.T) {
	r := testResource(t)
	assert.False(t, r.StartConnect(), "not pending")

	r.ScheduleWork()
	assert.True(t, r.StartConnect())
	assert.True(t, r.IsSet(Connecting))
	assert.False(t, r.StartConnect(), "already connecting")

	failed := testResource(t)
	failed.ScheduleWork()
	failed.ChangeStatus(0, Error)
	assert.False(t, failed.StartConnect(), "error is sticky")
}

func TestStartDownload_Guards(t *testing.T) {
	r := testResource(t)
	r.ScheduleWork()
	assert.True(t, r.StartDownload())
	assert.True(t, r.IsSet(Downloading))
	assert.False(t, r.StartDownload())
}

func TestFinishConnect(t *testing.T) {
	r := testResource(t)
	r.ScheduleWork()
	r.StartConnect()

	r.FinishConnect("/cache/lib.jar", 42, false)
	assert.True(t, r.IsSet(Connected|PreDownload))
	assert.False(t, r.IsSet(PreConnect))
	assert.False(t, r.IsSet(Connecting))
	assert.False(t, r.IsComplete())
	assert.Equal(t, "/cache/lib.jar", r.LocalFile())
	assert.Equal(t, int64(42), r.Size())
}

func TestFinishConnect_CurrentSkipsDownload(t *testing.T) {
	r := testResource(t)
	r.ScheduleWork()
	r.StartConnect()

	r.FinishConnect("/cache/lib.jar", 42, true)
	assert.True(t, r.IsComplete())
	assert.False(t, r.IsSet(PreDownload))
	assert.False(t, r.StartDownload())
}

func TestChangeStatus_ClearThenSet(t *testing.T) {
	r := testResource(t)
	r.ChangeStatus(0, Downloading|Processing)
	r.ChangeStatus(Downloading, Downloaded)

	assert.True(t, r.IsSet(Downloaded|Processing))
	assert.False(t, r.IsSet(Downloading))
}

func TestScheduleWork_SingleSubmissionUnderContention(t *testing.T) {
	r := testResource(t)

	var mu sync.Mutex
	submissions := 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.ScheduleWork() {
				mu.Lock()
				submissions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, submissions)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "none", Status(0).String())
	assert.Equal(t, "preconnect|processing", (PreConnect | Processing).String())
	assert.Equal(t, []string{"downloaded"}, Downloaded.Names())
}
