package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu  sync.Mutex
	ran []string
}

func (r *recorder) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, id)
}

func (r *recorder) index(id string) int {
	for i, v := range r.ran {
		if v == id {
			return i
		}
	}
	return -1
}

type fakeTask struct {
	id   string
	out  string
	reqs []Task
	err  error
	rec  *recorder
}

func (t *fakeTask) ID() string       { return t.id }
func (t *fakeTask) Requires() []Task { return t.reqs }
func (t *fakeTask) Output() string   { return t.out }

func (t *fakeTask) Run(ctx context.Context) error {
	t.rec.add(t.id)
	if t.err != nil {
		return t.err
	}
	if t.out != "" {
		return os.WriteFile(t.out, []byte(t.id), 0o644)
	}
	return nil
}

func newTask(dir, id string, rec *recorder, reqs ...Task) *fakeTask {
	return &fakeTask{id: id, out: filepath.Join(dir, id), reqs: reqs, rec: rec}
}

func TestRunOrder(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	c := newTask(dir, "c", rec)
	b := newTask(dir, "b", rec, c)
	a := newTask(dir, "a", rec, b)

	stats, err := (&Runner{Workers: 4}).Run(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, rec.ran)
	assert.EqualValues(t, 3, stats.Ran)
	assert.Zero(t, stats.Skipped)
	assert.NotEmpty(t, stats.RunID)
	assert.FileExists(t, a.out)
}

func TestRunSharedRequirementOnce(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	shared := newTask(dir, "shared", rec)
	left := newTask(dir, "left", rec, shared)
	right := newTask(dir, "right", rec, newTask(dir, "shared", rec))
	top := newTask(dir, "top", rec, left, right)

	stats, err := (&Runner{Workers: 2}).Run(context.Background(), top)
	require.NoError(t, err)
	assert.Len(t, rec.ran, 4)
	assert.EqualValues(t, 4, stats.Ran)
	assert.Less(t, rec.index("shared"), rec.index("left"))
	assert.Less(t, rec.index("shared"), rec.index("right"))
	assert.Equal(t, 3, rec.index("top"))
}

func TestRunSkipsComplete(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	leaf := newTask(dir, "leaf", rec)
	done := newTask(dir, "done", rec, leaf)
	require.NoError(t, os.WriteFile(done.out, nil, 0o644))
	top := newTask(dir, "top", rec, done)

	stats, err := (&Runner{}).Run(context.Background(), top)
	require.NoError(t, err)
	assert.Equal(t, []string{"top"}, rec.ran)
	assert.EqualValues(t, 1, stats.Ran)
	assert.EqualValues(t, 1, stats.Skipped)
	assert.NoFileExists(t, leaf.out)
}

func TestRunFailureStopsDependents(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	boom := errors.New("boom")
	bad := newTask(dir, "bad", rec)
	bad.err = boom
	top := newTask(dir, "top", rec, bad)

	_, err := (&Runner{Workers: 2}).Run(context.Background(), top)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "task bad")
	assert.Equal(t, -1, rec.index("top"))
	assert.NoFileExists(t, top.out)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Runner{}).Run(ctx, newTask(dir, "a", rec, newTask(dir, "b", rec)))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.ran)
}

func TestRunCycle(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	a := newTask(dir, "a", rec)
	b := newTask(dir, "b", rec, a)
	a.reqs = []Task{b}

	_, err := (&Runner{}).Run(context.Background(), a)
	require.ErrorIs(t, err, ErrCycle)
	assert.Empty(t, rec.ran)
}
