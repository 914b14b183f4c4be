package schedule

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	spec string
	runs int
	fail bool
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Spec() string { return j.spec }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	if j.fail {
		return fmt.Errorf("boom")
	}
	return nil
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := New()
	require.Error(t, s.Register(&countingJob{name: "bad", spec: "not a cron spec"}))
	require.NoError(t, s.Register(&countingJob{name: "good", spec: "*/5 * * * *"}))
}

func TestStatusTracksRunOutcomes(t *testing.T) {
	s := New()
	ok := &countingJob{name: "ok_job", spec: "* * * * *"}
	bad := &countingJob{name: "bad_job", spec: "* * * * *", fail: true}

	s.wrap(ok)()
	s.wrap(bad)()
	s.wrap(bad)()

	status := s.Status()
	require.Equal(t, int64(1), status["ok_job"].Runs)
	require.Empty(t, status["ok_job"].LastError)
	require.Equal(t, int64(2), status["bad_job"].Runs)
	require.Equal(t, "boom", status["bad_job"].LastError)
	require.Equal(t, 2, bad.runs)
}
