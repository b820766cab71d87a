package stages

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// solvePnP recovers the rotation and translation that map the 3D model
// points onto the observed 2D image points under a pinhole camera with
// focal length f and principal point (cx, cy). Gauss-Newton iteration
// over a 6-parameter pose (rotation vector + translation), numeric
// Jacobian, least-squares update via QR.
func solvePnP(object [][3]float64, observed [][2]float64, f, cx, cy float64) (rvec, tvec [3]float64, err error) {
	if len(object) != len(observed) || len(object) < 4 {
		return rvec, tvec, errors.New("pnp: need at least 4 point correspondences")
	}

	theta := initialPose(object, observed, f, cx, cy)

	const (
		maxIterations = 100
		tolerance     = 1e-10
	)
	residual := make([]float64, 2*len(object))
	for iter := 0; iter < maxIterations; iter++ {
		if !projectResiduals(theta, object, observed, f, cx, cy, residual) {
			return rvec, tvec, errors.New("pnp: points project behind the camera")
		}

		jac := numericJacobian(theta, object, observed, f, cx, cy)
		neg := mat.NewVecDense(len(residual), nil)
		for i, r := range residual {
			neg.SetVec(i, -r)
		}

		delta := mat.NewVecDense(6, nil)
		if err := delta.SolveVec(jac, neg); err != nil {
			return rvec, tvec, errors.New("pnp: normal equations are singular")
		}

		var norm float64
		for i := 0; i < 6; i++ {
			d := delta.AtVec(i)
			theta[i] += d
			norm += d * d
		}
		if math.Sqrt(norm) < tolerance {
			break
		}
	}

	for i := 0; i < 3; i++ {
		if math.IsNaN(theta[i]) || math.IsNaN(theta[i+3]) {
			return rvec, tvec, errors.New("pnp: solution diverged")
		}
		rvec[i] = theta[i]
		tvec[i] = theta[i+3]
	}
	return rvec, tvec, nil
}

// initialPose seeds translation depth from the scale ratio between a model
// edge and its observed counterpart, and x/y so the first model point
// (origin) lands on its observation under zero rotation.
func initialPose(object [][3]float64, observed [][2]float64, f, cx, cy float64) [6]float64 {
	var theta [6]float64

	objDX := object[2][0] - object[3][0]
	objDY := object[2][1] - object[3][1]
	objDist := math.Hypot(objDX, objDY)
	imgDist := math.Hypot(observed[2][0]-observed[3][0], observed[2][1]-observed[3][1])

	z := f
	if imgDist > 1e-9 && objDist > 1e-9 {
		z = f * objDist / imgDist
	}
	theta[5] = z
	theta[3] = (observed[0][0] - cx) * z / f
	theta[4] = (observed[0][1] - cy) * z / f
	return theta
}

// projectResiduals writes projected-minus-observed into out. Returns
// false when any point ends up at or behind the camera plane.
func projectResiduals(theta [6]float64, object [][3]float64, observed [][2]float64, f, cx, cy float64, out []float64) bool {
	r := rodrigues([3]float64{theta[0], theta[1], theta[2]})
	for i, p := range object {
		x := r[0][0]*p[0] + r[0][1]*p[1] + r[0][2]*p[2] + theta[3]
		y := r[1][0]*p[0] + r[1][1]*p[1] + r[1][2]*p[2] + theta[4]
		z := r[2][0]*p[0] + r[2][1]*p[1] + r[2][2]*p[2] + theta[5]
		if z < 1e-6 {
			return false
		}
		out[2*i] = f*x/z + cx - observed[i][0]
		out[2*i+1] = f*y/z + cy - observed[i][1]
	}
	return true
}

func numericJacobian(theta [6]float64, object [][3]float64, observed [][2]float64, f, cx, cy float64) *mat.Dense {
	rows := 2 * len(object)
	jac := mat.NewDense(rows, 6, nil)
	base := make([]float64, rows)
	perturbed := make([]float64, rows)
	projectResiduals(theta, object, observed, f, cx, cy, base)

	for j := 0; j < 6; j++ {
		eps := 1e-6 * math.Max(1, math.Abs(theta[j]))
		bumped := theta
		bumped[j] += eps
		if !projectResiduals(bumped, object, observed, f, cx, cy, perturbed) {
			continue
		}
		for i := 0; i < rows; i++ {
			jac.Set(i, j, (perturbed[i]-base[i])/eps)
		}
	}
	return jac
}

// rodrigues converts a rotation vector to its rotation matrix.
func rodrigues(r [3]float64) [3][3]float64 {
	angle := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	if angle < 1e-12 {
		return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}

	kx, ky, kz := r[0]/angle, r[1]/angle, r[2]/angle
	c, s := math.Cos(angle), math.Sin(angle)
	v := 1 - c

	return [3][3]float64{
		{c + kx*kx*v, kx*ky*v - kz*s, kx*kz*v + ky*s},
		{ky*kx*v + kz*s, c + ky*ky*v, ky*kz*v - kx*s},
		{kz*kx*v - ky*s, kz*ky*v + kx*s, c + kz*kz*v},
	}
}

// eulerAngles extracts yaw/pitch/roll in degrees from a rotation matrix
// using the R = Rz(yaw)*Ry(pitch)*Rx(roll) decomposition. Near the
// gimbal-lock singularity (sy ~ 0) yaw is fixed at zero and roll/pitch
// come from the alternate formula.
func eulerAngles(r [3][3]float64) (yaw, pitch, roll float64) {
	sy := math.Sqrt(r[0][0]*r[0][0] + r[1][0]*r[1][0])

	if sy >= 1e-6 {
		roll = math.Atan2(r[2][1], r[2][2])
		pitch = math.Atan2(-r[2][0], sy)
		yaw = math.Atan2(r[1][0], r[0][0])
	} else {
		roll = math.Atan2(-r[1][2], r[1][1])
		pitch = math.Atan2(-r[2][0], sy)
		yaw = 0
	}

	const degPerRad = 180 / math.Pi
	return yaw * degPerRad, pitch * degPerRad, roll * degPerRad
}
