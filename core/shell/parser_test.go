package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleCommand(t *testing.T) {
	stages, err := Parse("ls -l /tmp", nil)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, GenericExec, stages[0].Variant)
	assert.Equal(t, []string{"ls", "-l", "/tmp"}, stages[0].Argv)
	assert.False(t, stages[0].PipeFromPrev)
	assert.False(t, stages[0].PipeToNext)
	assert.False(t, stages[0].Background)

	assert.Equal(t, EndOfCommands, stages[1].Variant)
}

func TestParsePipeline(t *testing.T) {
	stages, err := Parse("cat file.txt | grep foo | wc -l", nil)
	require.NoError(t, err)
	require.Len(t, stages, 4)

	assert.False(t, stages[0].PipeFromPrev)
	assert.True(t, stages[0].PipeToNext)
	assert.True(t, stages[1].PipeFromPrev)
	assert.True(t, stages[1].PipeToNext)
	assert.True(t, stages[2].PipeFromPrev)
	assert.False(t, stages[2].PipeToNext)
	assert.Equal(t, EndOfCommands, stages[3].Variant)
}

func TestParseRedirects(t *testing.T) {
	stages, err := Parse("sort < in.txt > out.txt", nil)
	require.NoError(t, err)

	st := stages[0]
	assert.Equal(t, []string{"sort"}, st.Argv)
	assert.True(t, st.RedirectIn)
	assert.Equal(t, "in.txt", st.InPath)
	assert.True(t, st.RedirectOut)
	assert.False(t, st.AppendOut)
	assert.Equal(t, "out.txt", st.OutPath)
}

func TestParseAppendRedirect(t *testing.T) {
	stages, err := Parse("echo hi >> log.txt", nil)
	require.NoError(t, err)

	st := stages[0]
	assert.Equal(t, Echo, st.Variant)
	assert.True(t, st.RedirectOut)
	assert.True(t, st.AppendOut)
	assert.Equal(t, "log.txt", st.OutPath)
}

func TestParseBackground(t *testing.T) {
	stages, err := Parse("sleep 5 &", nil)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.True(t, stages[0].Background)
	assert.Equal(t, []string{"sleep", "5"}, stages[0].Argv)
}

func TestParseBackgroundOnLastStageOnly(t *testing.T) {
	stages, err := Parse("cat big | gzip &", nil)
	require.NoError(t, err)
	require.Len(t, stages, 3)

	assert.False(t, stages[0].Background)
	assert.True(t, stages[1].Background)
}

func TestParseVariants(t *testing.T) {
	cases := []struct {
		line    string
		variant Variant
	}{
		{"echo hello", Echo},
		{"pwd", PrintWorkDir},
		{"jobs", ListJobs},
		{"exit", Exit},
		{"quit", Exit},
		{"cd /tmp", ChangeDir},
		{"export A=b", Export},
		{"kill 1", SendSignal},
		{"/bin/true", GenericExec},
	}

	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			stages, err := Parse(tc.line, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.variant, stages[0].Variant)
		})
	}
}

func TestParseExport(t *testing.T) {
	stages, err := Parse("export GREETING=hello", nil)
	require.NoError(t, err)

	st := stages[0]
	assert.Equal(t, "GREETING", st.ExportName)
	assert.Equal(t, "hello", st.ExportValue)

	t.Run("empty value", func(t *testing.T) {
		stages, err := Parse("export EMPTY=", nil)
		require.NoError(t, err)
		assert.Equal(t, "EMPTY", stages[0].ExportName)
		assert.Equal(t, "", stages[0].ExportValue)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Parse("export NOTANASSIGNMENT", nil)
		assert.Error(t, err)
	})
}

func TestParseKill(t *testing.T) {
	t.Run("job id only", func(t *testing.T) {
		stages, err := Parse("kill 3", nil)
		require.NoError(t, err)
		assert.Equal(t, 3, stages[0].JobID)
		assert.Equal(t, 0, stages[0].Signal)
	})

	t.Run("signal and job id", func(t *testing.T) {
		stages, err := Parse("kill 9 2", nil)
		require.NoError(t, err)
		assert.Equal(t, 9, stages[0].Signal)
		assert.Equal(t, 2, stages[0].JobID)
	})

	t.Run("dash signal", func(t *testing.T) {
		stages, err := Parse("kill -9 2", nil)
		require.NoError(t, err)
		assert.Equal(t, 9, stages[0].Signal)
		assert.Equal(t, 2, stages[0].JobID)
	})

	t.Run("percent job spec", func(t *testing.T) {
		stages, err := Parse("kill %4", nil)
		require.NoError(t, err)
		assert.Equal(t, 4, stages[0].JobID)
	})

	t.Run("bad job id", func(t *testing.T) {
		_, err := Parse("kill zero", nil)
		assert.Error(t, err)
	})
}

func TestParseExpansion(t *testing.T) {
	expand := func(name string) string {
		if name == "TARGET" {
			return "/tmp"
		}
		return ""
	}

	stages, err := Parse("ls $TARGET", expand)
	require.NoError(t, err)
	assert.Equal(t, []string{"ls", "/tmp"}, stages[0].Argv)
}

func TestParseSyntaxErrors(t *testing.T) {
	cases := []string{
		"| wc",
		"ls | | wc",
		"ls |",
		"cat <",
		"cat > ",
		"sleep 5 & echo done",
	}

	for _, line := range cases {
		t.Run(line, func(t *testing.T) {
			_, err := Parse(line, nil)
			assert.Error(t, err)
		})
	}
}

func TestIsExitSequence(t *testing.T) {
	exitStages, err := Parse("exit", nil)
	require.NoError(t, err)
	assert.True(t, IsExitSequence(exitStages))

	other, err := Parse("echo exit", nil)
	require.NoError(t, err)
	assert.False(t, IsExitSequence(other))
}
