package compose

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeCaptureModeIdentity(t *testing.T) {
	for _, x := range []uint32{1, 2, 320, 720, 1080, 1920, 4096} {
		for _, y := range []uint32{1, 480, 1080} {
			require.Equal(t, WritebackCapture, DecideCaptureMode(x, y, x, y, false), "%dx%d", x, y)
			require.Equal(t, WritebackMemToMem, DecideCaptureMode(x, y, x, y, true), "%dx%d", x, y)
		}
	}
}

func TestComputeCaptureMode(t *testing.T) {
	for _, tc := range []struct {
		srcW, srcH, dstW, dstH uint32
		want                   WritebackMode
	}{
		{1280, 720, 1920, 1080, WritebackCapture},
		{960, 540, 1920, 1080, WritebackCapture},
		{959, 540, 1920, 1080, WritebackMemToMem},
		{1920, 1080, 1280, 720, WritebackMemToMem},
		{640, 360, 1920, 1080, WritebackMemToMem},
		{1280, 720, 1280, 1080, WritebackMemToMem},
		{1280, 720, 1400, 720, WritebackCapture},
		{0, 720, 1280, 720, WritebackMemToMem},
		{1280, 720, 1280, 0, WritebackMemToMem},
	} {
		require.Equal(t, tc.want, ComputeCaptureMode(tc.srcW, tc.srcH, tc.dstW, tc.dstH),
			"%dx%d to %dx%d", tc.srcW, tc.srcH, tc.dstW, tc.dstH)
	}
}

func TestSelectWriteback(t *testing.T) {
	s := MirroringState{Writeback: WritebackMemToMem}

	require.True(t, s.SelectWriteback(1280, 720, 1280, 720, false))
	require.Equal(t, WritebackCapture, s.Writeback)
	require.False(t, s.SelectWriteback(1280, 720, 1920, 1080, false))

	require.True(t, s.SelectWriteback(1280, 720, 1280, 720, true))
	require.Equal(t, WritebackMemToMem, s.Writeback)
	require.Equal(t, "mem2mem", s.Writeback.String())
}
