package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"seriesfill/internal/dataset"
)

func reconstructionBatch(t *testing.T) dataset.Batch {
	t.Helper()
	s, err := dataset.FromValues(2, 2, 2, []float64{
		0.2, 0.5,
		0.4, 0.9,
		0.1, math.NaN(),
		0.8, 1.7,
	})
	require.NoError(t, err)
	return dataset.Batch{Data: s}
}

func sgdStep(t *testing.T, net *LinearNet, lr float64) {
	t.Helper()
	for _, p := range net.Parameters() {
		for i := range p.Value {
			p.Value[i] -= lr * p.Grad[i]
			p.Grad[i] = 0
		}
	}
}

func TestAdaptBatchMasksMissing(t *testing.T) {
	net, err := NewLinearNet(2, 1)
	require.NoError(t, err)

	in, err := net.AdaptBatch(reconstructionBatch(t))
	require.NoError(t, err)
	li, ok := in.(*linearInput)
	require.True(t, ok)
	require.Equal(t, 4, li.rows)
	// the NaN at row 2, feature 1 is zero-filled and masked out
	require.Equal(t, 0.0, li.x.At(2, 1))
	require.Equal(t, 0.0, li.mask.At(2, 1))
	require.Equal(t, 1.0, li.mask.At(2, 0))
}

func TestAdaptBatchRejectsWrongWidth(t *testing.T) {
	net, err := NewLinearNet(3, 1)
	require.NoError(t, err)
	_, err = net.AdaptBatch(reconstructionBatch(t))
	require.Error(t, err)
	_, err = net.AdaptBatch(dataset.Batch{})
	require.Error(t, err)
}

func TestForwardBackwardReducesLoss(t *testing.T) {
	net, err := NewLinearNet(2, 1)
	require.NoError(t, err)
	batch := reconstructionBatch(t)

	in, err := net.AdaptBatch(batch)
	require.NoError(t, err)
	first, err := net.Forward(in)
	require.NoError(t, err)
	require.NotNil(t, first.Backward)
	first.Backward()
	sgdStep(t, net, 0.1)

	second, err := net.Forward(in)
	require.NoError(t, err)
	require.Less(t, second.Loss, first.Loss)
}

func TestEvalModeTracksNoGradients(t *testing.T) {
	net, err := NewLinearNet(2, 1)
	require.NoError(t, err)
	in, err := net.AdaptBatch(reconstructionBatch(t))
	require.NoError(t, err)

	net.SetEvalMode()
	res, err := net.Forward(in)
	require.NoError(t, err)
	require.Nil(t, res.Backward)
	for _, p := range net.Parameters() {
		for _, g := range p.Grad {
			require.Zero(t, g)
		}
	}

	net.SetTrainMode()
	res, err = net.Forward(in)
	require.NoError(t, err)
	require.NotNil(t, res.Backward)
}

func TestForwardRejectsForeignInput(t *testing.T) {
	net, err := NewLinearNet(2, 1)
	require.NoError(t, err)
	_, err = net.Forward(struct{}{})
	require.Error(t, err)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	net, err := NewLinearNet(2, 1)
	require.NoError(t, err)
	snap := net.StateSnapshot()

	// the snapshot must not alias live storage
	for _, p := range net.Parameters() {
		for i := range p.Value {
			p.Value[i] += 1
		}
	}
	require.NotEqual(t, snap["weight"][0], net.Parameters()[0].Value[0])

	require.NoError(t, net.RestoreSnapshot(snap))
	for _, p := range net.Parameters() {
		for i, v := range p.Value {
			require.Equal(t, snap[p.Name][i], v)
		}
	}
}

func TestRestoreRejectsBadSnapshot(t *testing.T) {
	net, err := NewLinearNet(2, 1)
	require.NoError(t, err)
	require.Error(t, net.RestoreSnapshot(Snapshot{}))
	require.Error(t, net.RestoreSnapshot(Snapshot{"weight": {1}, "bias": {0, 0}}))
}

func TestImputeSeriesFillsOnlyMissing(t *testing.T) {
	net, err := NewLinearNet(2, 1)
	require.NoError(t, err)

	s, err := dataset.FromValues(1, 2, 2, []float64{
		0.3, math.NaN(),
		math.NaN(), 0.7,
	})
	require.NoError(t, err)

	out, err := net.ImputeSeries(s)
	require.NoError(t, err)
	require.Zero(t, out.MissingCount())
	require.Equal(t, 0.3, out.At(0, 0, 0))
	require.Equal(t, 0.7, out.At(0, 1, 1))
	// input untouched
	require.Equal(t, 2, s.MissingCount())
}

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice("")
	require.NoError(t, err)
	require.Equal(t, CPU, d)
	d, err = ParseDevice("GPU")
	require.NoError(t, err)
	require.Equal(t, GPU, d)
	_, err = ParseDevice("tpu")
	require.Error(t, err)
	require.Equal(t, "cpu", CPU.String())
	require.Equal(t, "gpu", GPU.String())
}
