// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package stage

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ssr/internal/worklist"
	"github.com/gogpu/ssr/surface"
)

// borderFade is the normalized screen margin over which screen-space hits
// fade to the environment.
const borderFade = 0.05

// Intersect traces every ray of the ray list against the depth pyramid and
// writes the resulting radiance and roughness into the current history role
// at the listed pixels and their quad-copy neighbors.
func Intersect(f *Frame) {
	n := f.Lists.RayCount()
	forEachListed(f, f.Lists.RayArgs, n, func(i int) {
		traceItem(f, f.Lists.RayList[i])
	})
}

func traceItem(f *Frame, item worklist.RayItem) {
	x, y := item.X(), item.Y()
	idx := y*f.Width + x
	gb := f.GBuffer
	cur := f.History.Current()

	u, v := surface.PixelUV(x, y, f.Width, f.Height)
	depth := gb.Depth.Pix[idx]
	normal := gb.Normal.Pix[idx]
	rough := gb.Roughness.Pix[idx]

	world := f.Camera.Unproject(u, v, depth)
	view := world.Sub(f.Camera.Position).Normalize()
	dir := jitterReflection(reflect(view, normal), normal, rough, x, y, f.FrameIndex)

	radiance := traceRadiance(f, world, dir, mgl32.Vec3{u, v, depth}, rough)

	cur.Radiance.Pix[idx] = radiance
	cur.Roughness.Pix[idx] = rough

	if item.CopyHorizontal() {
		copyRay(f, x^1, y, radiance)
	}
	if item.CopyVertical() {
		copyRay(f, x, y^1, radiance)
	}
	if item.CopyDiagonal() {
		copyRay(f, x^1, y^1, radiance)
	}
}

func copyRay(f *Frame, x, y int, radiance mgl32.Vec3) {
	if x >= f.Width || y >= f.Height {
		return
	}
	idx := y*f.Width + x
	cur := f.History.Current()
	cur.Radiance.Pix[idx] = radiance
	cur.Roughness.Pix[idx] = f.GBuffer.Roughness.Pix[idx]
}

// traceRadiance returns the radiance arriving along dir at world. Screen
// hits sample the previous frame's color; misses resolve the sky and probes.
func traceRadiance(f *Frame, world, dir, origin mgl32.Vec3, rough float32) mgl32.Vec3 {
	env := f.Probes.Resolve(f.Sky, world, dir, rough)

	hit, ok := march(f, world, dir, origin)
	if !ok {
		return env
	}

	vel := surface.NearestMotion(f.GBuffer.Velocity, hit[0], hit[1])
	pu, pv := hit[0]-vel[0], hit[1]-vel[1]
	if pu < 0 || pu > 1 || pv < 0 || pv > 1 {
		return env
	}

	fade := edgeFade(hit[0], hit[1]) * edgeFade(pu, pv)
	col := surface.SampleColor(f.PrevColor, pu, pv)
	return env.Add(col.Sub(env).Mul(fade))
}

func edgeFade(u, v float32) float32 {
	d := min(u, 1-u, v, 1-v)
	return mgl32.Clamp(d/borderFade, 0, 1)
}

func reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

// jitterReflection perturbs the mirror direction by a roughness-scaled
// random offset, keeping it in the normal's hemisphere.
func jitterReflection(r, n mgl32.Vec3, rough float32, x, y int, frame uint32) mgl32.Vec3 {
	spread := rough * rough
	if spread <= 0 {
		return r
	}
	e1, e2 := hash2(x, y, frame)
	z := 1 - 2*e1
	s := float32(math.Sqrt(float64(max(0, 1-z*z))))
	phi := 2 * math.Pi * float64(e2)
	offset := mgl32.Vec3{s * float32(math.Cos(phi)), s * float32(math.Sin(phi)), z}

	j := r.Add(offset.Mul(spread)).Normalize()
	if j.Dot(n) <= 0 {
		return r
	}
	return j
}

// march walks the depth pyramid along a screen-space ray: ascend a level
// after crossing a cell without meeting its depth plane, descend on a
// potential hit. A hit at the most detailed level is then checked against
// the surface thickness. Returns the hit in normalized coordinates and
// device depth.
func march(f *Frame, world, dir, origin mgl32.Vec3) (mgl32.Vec3, bool) {
	hiz := f.HiZ
	p := &f.Params
	levels := hiz.Levels()
	if levels == 0 {
		return mgl32.Vec3{}, false
	}
	mostDetailed := min(max(p.MostDetailedMip, 0), levels-1)

	end, ok := rayEnd(f, world, dir)
	if !ok {
		return mgl32.Vec3{}, false
	}

	o := [3]float64{float64(origin[0]), float64(origin[1]), float64(origin[2])}
	d := [3]float64{float64(end[0]) - o[0], float64(end[1]) - o[1], float64(end[2]) - o[2]}
	if d[0] == 0 && d[1] == 0 {
		return mgl32.Vec3{}, false
	}

	var inv, floorOffset, uvOffset [2]float64
	w0, h0 := hiz.Size()
	nudge := [2]float64{
		0.005 * math.Exp2(float64(mostDetailed)) / float64(w0),
		0.005 * math.Exp2(float64(mostDetailed)) / float64(h0),
	}
	for i := range 2 {
		if d[i] >= 0 {
			floorOffset[i] = 1
			uvOffset[i] = nudge[i]
		} else {
			uvOffset[i] = -nudge[i]
		}
		if d[i] != 0 {
			inv[i] = 1 / d[i]
		} else {
			inv[i] = math.MaxFloat64
		}
	}
	invZ := math.MaxFloat64
	if d[2] != 0 {
		invZ = 1 / d[2]
	}

	at := func(t float64) [3]float64 {
		return [3]float64{o[0] + d[0]*t, o[1] + d[1]*t, o[2] + d[2]*t}
	}
	boundaryT := func(pos [3]float64, mip int) (float64, float64) {
		lw, lh := hiz.LevelSize(mip)
		cx := math.Floor(pos[0] * float64(lw))
		cy := math.Floor(pos[1] * float64(lh))
		px := (cx+floorOffset[0])/float64(lw) + uvOffset[0]
		py := (cy+floorOffset[1])/float64(lh) + uvOffset[1]
		return (px - o[0]) * inv[0], (py - o[1]) * inv[1]
	}

	// Step off the origin cell to avoid self intersection.
	tx, ty := boundaryT(o, mostDetailed)
	t := min(tx, ty)
	pos := at(t)

	mip := mostDetailed
	steps := 0
	for ; steps < p.MaxMarchSteps && mip >= mostDetailed; steps++ {
		if pos[0] < 0 || pos[0] >= 1 || pos[1] < 0 || pos[1] >= 1 {
			return mgl32.Vec3{}, false
		}
		lw, lh := hiz.LevelSize(mip)
		cellX := int(pos[0] * float64(lw))
		cellY := int(pos[1] * float64(lh))
		surfaceZ := float64(hiz.MinAt(mip, cellX, cellY))

		tx, ty := boundaryT(pos, mip)
		tz := math.MaxFloat64
		if d[2] > 0 {
			tz = (surfaceZ - o[2]) * invZ
		}
		tMin := min(tx, ty, tz)

		above := surfaceZ > pos[2]
		skipped := above && tMin != tz
		if above {
			t = tMin
			pos = at(t)
		}
		if skipped {
			mip = min(mip+1, levels-1)
		} else {
			mip--
		}
	}
	if mip >= mostDetailed {
		return mgl32.Vec3{}, false
	}
	if pos[0] < 0 || pos[0] >= 1 || pos[1] < 0 || pos[1] >= 1 {
		return mgl32.Vec3{}, false
	}

	hit := mgl32.Vec3{float32(pos[0]), float32(pos[1]), float32(pos[2])}
	return hit, validateHit(f, hit, dir)
}

// rayEnd projects a far point along the ray, clipped to stay in front of the
// near plane, and returns it in normalized coordinates and device depth.
func rayEnd(f *Frame, world, dir mgl32.Vec3) (mgl32.Vec3, bool) {
	cam := f.Camera
	length := cam.Far
	c0 := cam.Clip(world)
	c1 := cam.Clip(world.Add(dir.Mul(length)))
	if c1[3] < cam.Near {
		den := c0[3] - c1[3]
		if den <= 0 {
			return mgl32.Vec3{}, false
		}
		s := (c0[3] - cam.Near) / den
		if s <= 0 {
			return mgl32.Vec3{}, false
		}
		c1 = cam.Clip(world.Add(dir.Mul(length * s)))
	}
	if c1[3] <= 0 {
		return mgl32.Vec3{}, false
	}
	return surface.ClipToScreen(c1), true
}

// validateHit rejects hits on the sky, hits farther behind the surface than
// the thickness allows, and hits on surfaces facing away from the ray.
func validateHit(f *Frame, hit, dir mgl32.Vec3) bool {
	gb := f.GBuffer
	x := min(int(hit[0]*float32(f.Width)), f.Width-1)
	y := min(int(hit[1]*float32(f.Height)), f.Height-1)
	idx := y*f.Width + x

	scene := gb.Depth.Pix[idx]
	if surface.IsSky(scene) {
		return false
	}
	sceneLin := f.Camera.LinearDepth(scene)
	rayLin := f.Camera.LinearDepth(mgl32.Clamp(hit[2], 0, 1))
	if rayLin-sceneLin > f.Params.Thickness*sceneLin {
		return false
	}
	return gb.Normal.Pix[idx].Dot(dir) <= 0
}
