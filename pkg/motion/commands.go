package motion

import (
	"context"
	"math"
	"time"

	"github.com/quartercastle/vector"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/path"
)

// Within this distance of the target the controllers stop steering towards
// it, since the angle to a nearby point swings wildly.
const closeRadius = 7.5

// MoveToPoint drives to (x, y), ending with whatever heading it arrives
// at.
func (c *Chassis) MoveToPoint(ctx context.Context, x, y float64, timeout time.Duration, p Params) (*Motion, error) {
	return c.start(ctx, KindMoveToPoint, timeout, p, &pointController{
		target:   pointPose(x, y),
		reverse:  p.Reverse,
		maxSpeed: p.maxSpeed(),
		slew:     c.Linear.MaxSlew,
		linear:   NewPD(c.Linear),
		angular:  NewPD(c.Angular),
		settle:   NewSettler(c.Linear),
	})
}

type pointController struct {
	target   Pose
	reverse  bool
	maxSpeed float64
	slew     float64

	linear, angular *PD
	settle          *Settler

	close      bool
	prevLinear float64
}

func (pc *pointController) step(pose Pose, now time.Time) (float64, float64, bool) {
	if pc.reverse {
		pose = pose.Flipped()
	}
	dist := pose.Distance(pc.target)
	if dist < closeRadius {
		pc.close = true
	}
	angErr := angle.Error(pose.AngleTo(pc.target), pose.Theta)
	lateral := dist * math.Cos(angle.ToRadians(angErr))
	if pc.settle.Update(lateral, now) {
		return 0, 0, true
	}

	lin := clamp(pc.linear.Update(lateral), pc.maxSpeed)
	if !pc.close {
		lin = Slew(lin, pc.prevLinear, pc.slew)
	}
	pc.prevLinear = lin
	var ang float64
	if !pc.close {
		ang = clamp(pc.angular.Update(angErr), pc.maxSpeed)
	}

	l, r := normalize(lin+ang, lin-ang, pc.maxSpeed)
	if pc.reverse {
		l, r = reverseSides(l, r)
	}
	return l, r, false
}

// MoveToPose drives to (x, y) arriving with the given heading, steering at a
// carrot point that leads the target along its approach line.
func (c *Chassis) MoveToPose(ctx context.Context, x, y, theta float64, timeout time.Duration, p Params) (*Motion, error) {
	target := Pose{X: x, Y: y, Theta: theta}
	if p.Reverse {
		target = target.Flipped()
	}
	return c.start(ctx, KindMoveToPose, timeout, p, &poseController{
		target:     target,
		reverse:    p.Reverse,
		maxSpeed:   p.maxSpeed(),
		lead:       p.lead(),
		slew:       c.Linear.MaxSlew,
		chasePower: c.Drivetrain.ChasePower,
		linear:     NewPD(c.Linear),
		angular:    NewPD(c.Angular),
		settle:     NewSettler(c.Linear),
	})
}

type poseController struct {
	target     Pose
	reverse    bool
	maxSpeed   float64
	lead       float64
	slew       float64
	chasePower float64

	linear, angular *PD
	settle          *Settler

	close      bool
	prevLinear float64
}

// Carrot returns the point the robot steers at when dist inches from the
// target.
func Carrot(target Pose, dist, lead float64) vector.Vector {
	return target.Vec().Sub(target.Heading().Scale(lead * dist))
}

func (pc *poseController) step(pose Pose, now time.Time) (float64, float64, bool) {
	if pc.reverse {
		pose = pose.Flipped()
	}
	dist := pose.Distance(pc.target)
	if dist < closeRadius {
		pc.close = true
	}

	carrot := Carrot(pc.target, dist, pc.lead)
	if pc.close {
		carrot = pc.target.Vec()
	}
	carrotPose := fromVec(carrot)
	toCarrot := angle.Error(pose.AngleTo(carrotPose), pose.Theta)
	lateral := pose.Distance(carrotPose) * math.Cos(angle.ToRadians(toCarrot))

	var angErr float64
	if pc.close {
		angErr = angle.Error(pc.target.Theta, pose.Theta)
		if pc.settle.Update(lateral, now) {
			return 0, 0, true
		}
	} else {
		angErr = toCarrot
	}

	lin := clamp(pc.linear.Update(lateral), pc.maxSpeed)
	ang := clamp(pc.angular.Update(angErr), pc.maxSpeed)
	if !pc.close {
		lin = Slew(lin, pc.prevLinear, pc.slew)
	}

	// Slow down on tight curves so the wheels keep grip.
	if pc.chasePower > 0 {
		if k := math.Abs(Curvature(pose, carrot)); k > 1e-6 {
			maxSlip := math.Sqrt(pc.chasePower / k * 9.8)
			lin = clamp(lin, maxSlip)
		}
	}

	// Turning takes priority over driving.
	if overturn := math.Abs(ang) + math.Abs(lin) - pc.maxSpeed; overturn > 0 {
		if lin > 0 {
			lin -= overturn
		} else {
			lin += overturn
		}
	}
	pc.prevLinear = lin

	l, r := lin+ang, lin-ang
	if pc.reverse {
		l, r = reverseSides(l, r)
	}
	return l, r, false
}

// TurnTo turns on the spot to face (x, y), or to put the back towards it
// when reversed.
func (c *Chassis) TurnTo(ctx context.Context, x, y float64, timeout time.Duration, p Params) (*Motion, error) {
	return c.start(ctx, KindTurnTo, timeout, p, &turnController{
		heading: func(pose Pose) float64 {
			h := pose.AngleTo(pointPose(x, y))
			if p.Reverse {
				h += 180
			}
			return h
		},
		maxSpeed: p.maxSpeed(),
		slew:     c.Angular.MaxSlew,
		pd:       NewPD(c.Angular),
		settle:   NewSettler(c.Angular),
	})
}

// TurnToHeading turns on the spot to an absolute heading.
func (c *Chassis) TurnToHeading(ctx context.Context, heading float64, timeout time.Duration, p Params) (*Motion, error) {
	return c.start(ctx, KindTurnTo, timeout, p, &turnController{
		heading:  func(Pose) float64 { return heading },
		maxSpeed: p.maxSpeed(),
		slew:     c.Angular.MaxSlew,
		pd:       NewPD(c.Angular),
		settle:   NewSettler(c.Angular),
	})
}

type turnController struct {
	heading  func(pose Pose) float64
	maxSpeed float64
	slew     float64
	pd       *PD
	settle   *Settler
	prev     float64
}

func (tc *turnController) step(pose Pose, now time.Time) (float64, float64, bool) {
	err := angle.Error(tc.heading(pose), pose.Theta)
	if tc.settle.Update(err, now) {
		return 0, 0, true
	}
	out := clamp(tc.pd.Update(err), tc.maxSpeed)
	out = Slew(out, tc.prev, tc.slew)
	tc.prev = out
	return out, -out, false
}

// Follow drives along a path by chasing a point lookahead inches ahead of
// the robot on the path.  It finishes on reaching the end of the path.
func (c *Chassis) Follow(ctx context.Context, p *path.Path, lookahead float64, timeout time.Duration, params Params) (*Motion, error) {
	pts := make([]vector.Vector, len(p.Points))
	for i, pt := range p.Points {
		pts[i] = vector.Vector{pt.X, pt.Y}
	}
	return c.start(ctx, KindFollow, timeout, params, &pursuitController{
		path:       p,
		points:     pts,
		lookahead:  lookahead,
		reverse:    params.Reverse,
		maxSpeed:   params.maxSpeed(),
		trackWidth: c.Drivetrain.TrackWidth,
	})
}

type pursuitController struct {
	path       *path.Path
	points     []vector.Vector
	lookahead  float64
	reverse    bool
	maxSpeed   float64
	trackWidth float64

	closest  int
	progress float64
	target   vector.Vector
}

func (fc *pursuitController) step(pose Pose, now time.Time) (float64, float64, bool) {
	if len(fc.points) == 0 {
		return 0, 0, true
	}
	if fc.reverse {
		pose = pose.Flipped()
	}
	pos := pose.Vec()

	// The closest point only ever moves forwards along the path.
	best := math.Inf(1)
	for i := fc.closest; i < len(fc.points); i++ {
		if d := fc.points[i].Sub(pos).Magnitude(); d < best {
			best = d
			fc.closest = i
		}
	}
	last := len(fc.points) - 1
	if fc.closest == last && best < fc.lookahead {
		return 0, 0, true
	}

	if fc.target == nil {
		fc.target = fc.points[0]
	}
	if t, progress, ok := LookaheadPoint(fc.points, pos, fc.lookahead, fc.progress); ok {
		fc.target, fc.progress = t, progress
	}

	k := Curvature(pose, fc.target)
	v := math.Min(fc.path.Points[fc.closest].Speed, fc.maxSpeed)
	l := v * (2 + k*fc.trackWidth) / 2
	r := v * (2 - k*fc.trackWidth) / 2
	l, r = normalize(l, r, fc.maxSpeed)
	if fc.reverse {
		l, r = reverseSides(l, r)
	}
	return l, r, false
}

// LookaheadPoint finds the furthest point along the path, at or beyond
// minProgress, where a circle of radius lookahead around pos crosses the
// path.  Progress is the segment index plus the fraction along it.
func LookaheadPoint(points []vector.Vector, pos vector.Vector, lookahead, minProgress float64) (vector.Vector, float64, bool) {
	var found vector.Vector
	bestProgress := -1.0
	for i := int(minProgress); i < len(points)-1; i++ {
		t, ok := circleIntersect(points[i], points[i+1], pos, lookahead)
		if !ok {
			continue
		}
		progress := float64(i) + t
		if progress >= minProgress && progress > bestProgress {
			bestProgress = progress
			d := points[i+1].Sub(points[i])
			found = points[i].Add(d.Scale(t))
		}
	}
	if bestProgress < 0 {
		return nil, minProgress, false
	}
	return found, bestProgress, true
}

// circleIntersect returns the fraction along start->end where the segment
// leaves a circle of radius r around centre.
func circleIntersect(start, end, centre vector.Vector, r float64) (float64, bool) {
	d := end.Sub(start)
	f := start.Sub(centre)
	a := d.Dot(d)
	if a == 0 {
		return 0, false
	}
	b := 2 * f.Dot(d)
	c := f.Dot(f) - r*r
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	disc = math.Sqrt(disc)
	if t := (-b + disc) / (2 * a); t >= 0 && t <= 1 {
		return t, true
	}
	if t := (-b - disc) / (2 * a); t >= 0 && t <= 1 {
		return t, true
	}
	return 0, false
}
