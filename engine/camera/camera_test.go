package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUGlobalsSize(t *testing.T) {
	g := GPUGlobals{}
	assert.Equal(t, 144, g.Size())
	assert.Len(t, g.Marshal(), 144)
}

func TestGPUGlobalsMarshalOffsets(t *testing.T) {
	g := GPUGlobals{
		CameraPosition: [3]float32{1.5, -2.5, 3.5},
	}
	for i := range 16 {
		g.ViewProj[i] = float32(i)
		g.InverseViewProj[i] = float32(100 + i)
	}

	buf := g.Marshal()
	require.Len(t, buf, 144)

	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}

	assert.Equal(t, float32(0), readF32(0))
	assert.Equal(t, float32(15), readF32(15*4))
	assert.Equal(t, float32(100), readF32(64))
	assert.Equal(t, float32(115), readF32(64+15*4))
	assert.Equal(t, float32(1.5), readF32(128))
	assert.Equal(t, float32(-2.5), readF32(132))
	assert.Equal(t, float32(3.5), readF32(136))
	assert.Equal(t, float32(0), readF32(140), "padding must be zero")
}

func TestCameraGlobalsFromController(t *testing.T) {
	ctrl := NewOrbitController(
		WithRadius(10),
		WithAzimuth(0),
		WithElevation(0),
		WithTarget(0, 0, 0),
	)
	cam := NewCamera(
		WithController(ctrl),
		WithAspect(16.0/9.0),
		WithNear(0.5),
		WithFar(200),
	)

	g := cam.Globals()
	// azimuth 0, elevation 0 puts the camera on the +Z axis.
	assert.InDelta(t, 0.0, g.CameraPosition[0], 1e-4)
	assert.InDelta(t, 0.0, g.CameraPosition[1], 1e-4)
	assert.InDelta(t, 10.0, g.CameraPosition[2], 1e-4)

	// ViewProj and its inverse must actually be inverses.
	vp := cam.ViewProjectionMatrix()
	inv := cam.InverseViewProjectionMatrix()
	var out [16]float32
	mul4(out[:], vp[:], inv[:])
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := float32(0)
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, out[i*4+j], 1e-3)
		}
	}
}

func TestOrbitControllerClamping(t *testing.T) {
	ctrl := NewOrbitController(WithRadiusBounds(5, 50), WithRadius(10))

	ctrl.Zoom(1000)
	assert.Equal(t, float32(5), ctrl.Radius())

	ctrl.Zoom(-1000)
	assert.Equal(t, float32(50), ctrl.Radius())

	ctrl.SetElevation(10)
	assert.Less(t, ctrl.Elevation(), float32(math.Pi/2))
}

// mul4 is a local helper so the test does not depend on the common package API.
func mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}
