package stages

import (
	"math"
	"testing"
)

func projectPoints(rvec, tvec [3]float64, f, cx, cy float64) [][2]float64 {
	r := rodrigues(rvec)
	observed := make([][2]float64, len(poseModelPoints))
	for i, p := range poseModelPoints {
		x := r[0][0]*p[0] + r[0][1]*p[1] + r[0][2]*p[2] + tvec[0]
		y := r[1][0]*p[0] + r[1][1]*p[1] + r[1][2]*p[2] + tvec[1]
		z := r[2][0]*p[0] + r[2][1]*p[1] + r[2][2]*p[2] + tvec[2]
		observed[i] = [2]float64{f*x/z + cx, f*y/z + cy}
	}
	return observed
}

func TestSolvePnPRecoversFrontalPose(t *testing.T) {
	trueT := [3]float64{10, -20, 2000}
	observed := projectPoints([3]float64{}, trueT, 600, 300, 450)

	rvec, tvec, err := solvePnP(poseModelPoints, observed, 600, 300, 450)
	if err != nil {
		t.Fatalf("solvePnP: %v", err)
	}

	for i := 0; i < 3; i++ {
		if math.Abs(rvec[i]) > 0.01 {
			t.Errorf("rvec[%d] = %f, want ~0", i, rvec[i])
		}
		if math.Abs(tvec[i]-trueT[i]) > 5 {
			t.Errorf("tvec[%d] = %f, want %f", i, tvec[i], trueT[i])
		}
	}
}

func TestSolvePnPRecoversRotation(t *testing.T) {
	trueR := [3]float64{0, 0, 30 * math.Pi / 180}
	trueT := [3]float64{0, 0, 2000}
	observed := projectPoints(trueR, trueT, 600, 300, 450)

	rvec, _, err := solvePnP(poseModelPoints, observed, 600, 300, 450)
	if err != nil {
		t.Fatalf("solvePnP: %v", err)
	}

	yaw, _, _ := eulerAngles(rodrigues(rvec))
	if math.Abs(yaw-30) > 1 {
		t.Errorf("recovered yaw = %f, want ~30", yaw)
	}
}

func TestSolvePnPRejectsTooFewPoints(t *testing.T) {
	if _, _, err := solvePnP(poseModelPoints[:3], make([][2]float64, 3), 600, 300, 450); err == nil {
		t.Error("expected an error for 3 correspondences")
	}
}

func TestRodriguesIdentity(t *testing.T) {
	r := rodrigues([3]float64{})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(r[i][j]-want) > 1e-12 {
				t.Fatalf("r[%d][%d] = %f, want %f", i, j, r[i][j], want)
			}
		}
	}
}

func TestEulerAnglesPureRotations(t *testing.T) {
	yaw, pitch, roll := eulerAngles(rodrigues([3]float64{0, 0, 0.5}))
	if math.Abs(yaw-0.5*180/math.Pi) > 1e-6 {
		t.Errorf("yaw = %f", yaw)
	}
	if math.Abs(pitch) > 1e-6 || math.Abs(roll) > 1e-6 {
		t.Errorf("pitch = %f, roll = %f, want 0", pitch, roll)
	}

	_, _, roll = eulerAngles(rodrigues([3]float64{0.3, 0, 0}))
	if math.Abs(roll-0.3*180/math.Pi) > 1e-6 {
		t.Errorf("roll = %f", roll)
	}
}

func TestEulerAnglesGimbalLock(t *testing.T) {
	// A 90 degree rotation about y collapses sy to zero.
	r := rodrigues([3]float64{0, math.Pi / 2, 0})
	yaw, pitch, _ := eulerAngles(r)
	if yaw != 0 {
		t.Errorf("yaw = %f, want 0 at the singularity", yaw)
	}
	if math.Abs(pitch-90) > 1e-4 {
		t.Errorf("pitch = %f, want 90", pitch)
	}
}
