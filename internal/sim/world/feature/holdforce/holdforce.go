// Package holdforce computes where a held object should be and the bounded
// force that drives it there.
package holdforce

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Params struct {
	MaxForce        float64
	Gain            float64
	HeadOffsetScale float64
	ForwardOffset   mgl64.Vec3
	// GravityCompensation scales the upward force that cancels gravity on the
	// held body. 0 disables it, 1 cancels it fully.
	GravityCompensation float64
	Epsilon             float64
}

// Head is the head bone transform relative to the player root.
type Head struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

// Anchor returns player_pos + head_translation*scale + (player_rot*head_rot)*forward.
func Anchor(p Params, playerPos mgl64.Vec3, playerRot mgl64.Quat, head Head) mgl64.Vec3 {
	look := playerRot.Mul(head.Rotation).Normalize()
	return playerPos.
		Add(head.Translation.Mul(p.HeadOffsetScale)).
		Add(look.Rotate(p.ForwardOffset))
}

// Corrective returns dir*min(max_force, distance*gain) pointing from pos to
// anchor. Distances below Epsilon yield zero.
func Corrective(p Params, pos, anchor mgl64.Vec3) mgl64.Vec3 {
	d := anchor.Sub(pos)
	dist := d.Len()
	if dist < p.Epsilon || dist == 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return mgl64.Vec3{}
	}
	mag := math.Min(p.MaxForce, dist*p.Gain)
	if mag <= 0 {
		return mgl64.Vec3{}
	}
	return d.Mul(mag / dist)
}

// GravityCompensation returns -gravity*mass*coefficient.
func GravityCompensation(p Params, gravity mgl64.Vec3, mass float64) mgl64.Vec3 {
	if p.GravityCompensation == 0 || mass <= 0 {
		return mgl64.Vec3{}
	}
	return gravity.Mul(-mass * p.GravityCompensation)
}
