package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	plan := filepath.Join(dir, "plan.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(plan, []byte("netlist: a.net\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	calls := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{plan}, 50*time.Millisecond, zerolog.Nop(), func(changed []string) error {
			calls <- changed
			return errors.New("stop")
		})
	}()

	// let the watcher register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(plan, []byte("netlist: b.net\n"), 0o644))
	}

	select {
	case changed := <-calls:
		want, err := filepath.Abs(plan)
		require.NoError(t, err)
		assert.Equal(t, []string{want}, changed)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	assert.EqualError(t, <-done, "stop")
}

func TestWatch_Canceled(t *testing.T) {
	plan := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(plan, nil, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Watch(ctx, []string{plan}, 0, zerolog.Nop(), func([]string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
