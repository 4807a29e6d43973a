package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripreel/pkg/audio"
	"tripreel/pkg/maps"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{Name: "ok", Check: func(context.Context) error { return nil }, Critical: true},
		{Name: "minor", Check: func(context.Context) error { return errors.New("minor issue") }},
		{
			Name:    "slow",
			Timeout: 10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}

	results := Run(context.Background(), probes)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Error)
	assert.EqualError(t, results[1].Error, "minor issue")
	assert.ErrorIs(t, results[2].Error, context.DeadlineExceeded)
}

func TestAnalyzeResults(t *testing.T) {
	fail := errors.New("fail")
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{"all pass", []Result{{Probe: Probe{Name: "P1", Critical: true}}}, false},
		{"critical failure", []Result{{Probe: Probe{Name: "P1", Critical: true}, Error: fail}}, true},
		{"non-critical failure", []Result{{Probe: Probe{Name: "P1"}, Error: fail}}, false},
		{"mixed", []Result{
			{Probe: Probe{Name: "P1"}, Error: fail},
			{Probe: Probe{Name: "P2", Critical: true}, Error: fail},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if tt.wantErr {
				assert.ErrorIs(t, err, fail)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type statusFunc func() maps.Status

func (f statusFunc) Status() maps.Status { return f() }

func TestChecks(t *testing.T) {
	ctx := context.Background()

	db := Database(PingerFunc(func(context.Context) error { return nil }))
	assert.True(t, db.Critical)
	assert.NoError(t, db.Check(ctx))
	assert.Error(t, Database(nil).Check(ctx))

	missing := MapsCredential(statusFunc(func() maps.Status { return maps.Status{Message: "no key"} }))
	assert.False(t, missing.Critical)
	assert.ErrorIs(t, missing.Check(ctx), maps.ErrMissingCredential)
	assert.NoError(t, MapsCredential(statusFunc(func() maps.Status { return maps.Status{Available: true} })).Check(ctx))

	assert.NoError(t, BGMSource(audio.Source{Location: "/audio/bgm.mp3"}, true).Check(ctx))
	assert.Error(t, BGMSource(audio.Source{Location: "https://example.com/a.mp3", Fallback: true}, true).Check(ctx))
	assert.NoError(t, BGMSource(audio.Source{}, false).Check(ctx))
}
