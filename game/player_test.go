package game

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "alice", want: "alice"},
		{name: "trimmed", in: "  bob \t", want: "bob"},
		{name: "truncated", in: strings.Repeat("x", 30), want: strings.Repeat("x", MaxNameLength)},
		{name: "truncated by runes", in: strings.Repeat("é", 25), want: strings.Repeat("é", MaxNameLength)},
		{name: "empty", in: "", wantErr: true},
		{name: "blank", in: "    ", wantErr: true},
		{name: "invalid utf8", in: "\xff\xfe", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := SanitizeName(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadRequestFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPlanarDistance(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 5.0, Vec3{3, 100, 4}.PlanarDistance(Vec3{}))
	assert.Equal(t, 0.0, Vec3{1, 2, 3}.PlanarDistance(Vec3{1, -7, 3}))
}

func TestTargetDistanceRange(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		round  int
		lo, hi float64
	}{
		{1, 50, 100},
		{5, 50, 100},
		{6, 100, 200},
		{10, 100, 200},
		{11, 200, 400},
		{12, 200, 400},
		{50, 200, 400},
	}

	rng := rand.New(rand.NewPCG(3, 4))
	for _, tc := range testCases {
		lo, hi := TargetDistanceRange(tc.round)
		assert.Equal(t, tc.lo, lo, "round %d", tc.round)
		assert.Equal(t, tc.hi, hi, "round %d", tc.round)

		for range 100 {
			target := GenerateTarget(tc.round, rng)
			d := target.PlanarDistance(Vec3{})
			assert.True(t, d >= lo-1e-9 && d <= hi+1e-9, "round %d distance %f", tc.round, d)
			assert.Equal(t, SatelliteElevation, target[1])
		}
	}
}

func TestProgramValidate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Program(nil).Validate())
	assert.NoError(t, Program{{Kind: CommandMove, Value: 1}, {Kind: CommandTurn}, {Kind: CommandCollect}, {Kind: CommandScan}}.Validate())
	assert.ErrorIs(t, Program{{Kind: "MOVE"}}.Validate(), ErrBadRequestFormat)
	assert.ErrorIs(t, make(Program, MaxProgramLength+1).Validate(), ErrBadRequestFormat)
}

func TestPhaseString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "lobby", PhaseLobby.String())
	assert.Equal(t, "finished", PhaseFinished.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
