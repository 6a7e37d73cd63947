package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExecutorRun(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}

	t.Run("stages run in order", func(t *testing.T) {
		dir := t.TempDir()
		marker := filepath.Join(dir, "marker")

		job := &Job{}
		job.Append(Stage{Name: "write", Exec: sh, Args: []string{"-c", "echo one > " + marker}})
		job.Append(Stage{Name: "append", Exec: sh, Args: []string{"-c", "echo two >> " + marker}})

		err := NewExecutor(zap.NewNop(), false).Run(context.Background(), job)
		require.NoError(t, err)

		data, err := os.ReadFile(marker)
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", string(data))
	})

	t.Run("first failure aborts with stage context", func(t *testing.T) {
		dir := t.TempDir()
		marker := filepath.Join(dir, "marker")

		job := &Job{}
		job.Append(Stage{Name: "boom", Exec: sh, Args: []string{"-c", "echo broken >&2; exit 3"}})
		job.Append(Stage{Name: "never", Exec: sh, Args: []string{"-c", "touch " + marker}})

		err := NewExecutor(zap.NewNop(), false).Run(context.Background(), job)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, "boom", stageErr.Stage)
		assert.Contains(t, stageErr.Stderr, "broken")
		assert.Contains(t, err.Error(), "boom")

		_, statErr := os.Stat(marker)
		assert.True(t, os.IsNotExist(statErr))
	})
}
