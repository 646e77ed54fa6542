package transcode

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTranscoder struct {
	percents []float64
	err      error
	gotKbps  int
}

func (m *mockTranscoder) Transcode(ctx context.Context, src, dest string, kbps int, report func(float64)) error {
	m.gotKbps = kbps
	for _, p := range m.percents {
		report(p)
	}
	return m.err
}

func run(t *testing.T, s *Stage) ([]float64, error) {
	t.Helper()
	updates := make(chan float64, 64)
	err := s.Run(context.Background(), "in.src", "out.mp3", updates)
	close(updates)
	var got []float64
	for u := range updates {
		got = append(got, u)
	}
	return got, err
}

func TestStage_ScalesToSecondHalf(t *testing.T) {
	tc := &mockTranscoder{percents: []float64{0, 10, 50, 100}}
	s := NewStage(tc, 0, hclog.NewNullLogger())

	got, err := run(t, s)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 55, 75, 100}, got)
	assert.Equal(t, DefaultBitrateKbps, tc.gotKbps)
}

func TestStage_Direct(t *testing.T) {
	tc := &mockTranscoder{percents: []float64{-5, 30, 130}}
	s := NewDirectStage(tc, 128, hclog.NewNullLogger())

	got, err := run(t, s)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 30, 100}, got)
	assert.Equal(t, 128, tc.gotKbps)
}

func TestStage_Failure(t *testing.T) {
	cause := errors.New("exit status 1")
	s := NewStage(&mockTranscoder{percents: []float64{20}, err: cause}, 320, hclog.NewNullLogger())

	got, err := run(t, s)
	assert.Equal(t, []float64{60}, got)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "in.src", terr.Src)
	assert.ErrorIs(t, err, cause)
}
