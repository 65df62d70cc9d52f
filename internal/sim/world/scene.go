package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/sim/world/feature/lifecycle"
)

// buildScene lays out the floor, the shute and the starting cubes. Static
// geometry is created first so body ids are stable across restarts.
func (w *World) buildScene() {
	f := w.tun.Floor
	w.phys.AddStaticBox(
		mgl64.Vec3{0, 0, -f.Thickness / 2},
		mgl64.Vec3{f.HalfExtent, f.HalfExtent, f.Thickness / 2},
	)
	sc := w.tun.Scene
	if sc.Shute {
		w.phys.AddStaticBox(mgl64.Vec3(sc.ShuteCenter), mgl64.Vec3(sc.ShuteHalfSize))
	}
	area := [2]float64{sc.AreaHalfExtent, sc.AreaHalfExtent}
	for i := 0; i < sc.Cubes; i++ {
		pos := lifecycle.SpawnPosition(w.cfg.Seed, lifecycle.StreamScene, uint64(i), [2]float64{}, area, sc.CubeHalfSize*2)
		w.spawnCube(0, pos, sc.CubeHalfSize, sc.CubeMass, CapHoldable, lifecycle.PolicyBoundary)
	}
}
