// math/vecmat.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"gonum.org/v1/gonum/spatial/r3"
)

///////////////////////////////////////////////////////////////////////////
// 3x3 matrix

type Matrix3 [3][3]float64

func MakeMatrix3(m00, m01, m02, m10, m11, m12, m20, m21, m22 float64) Matrix3 {
	return Matrix3{
		{m00, m01, m02},
		{m10, m11, m12},
		{m20, m21, m22}}
}

func Identity3x3() Matrix3 {
	return MakeMatrix3(1, 0, 0, 0, 1, 0, 0, 0, 1)
}

// EulerRotation returns the 3-2-1 (yaw, pitch, roll) direction cosine
// matrix that takes a vector expressed in the NED frame into the body
// frame. Its transpose goes the other way.
func EulerRotation(phi, theta, psi float64) Matrix3 {
	sphi, cphi := gomath.Sincos(phi)
	sth, cth := gomath.Sincos(theta)
	spsi, cpsi := gomath.Sincos(psi)

	return MakeMatrix3(
		cth*cpsi, cth*spsi, -sth,
		sphi*sth*cpsi-cphi*spsi, sphi*sth*spsi+cphi*cpsi, sphi*cth,
		cphi*sth*cpsi+sphi*spsi, cphi*sth*spsi-sphi*cpsi, cphi*cth)
}

func (m Matrix3) Transpose() Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

func (m Matrix3) PostMultiply(m2 Matrix3) Matrix3 {
	var result Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			result[i][j] = m[i][0]*m2[0][j] + m[i][1]*m2[1][j] + m[i][2]*m2[2][j]
		}
	}
	return result
}

func (m Matrix3) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func (m Matrix3) Determinant() float64 {
	minor12 := m[1][1]*m[2][2] - m[1][2]*m[2][1]
	minor02 := m[1][0]*m[2][2] - m[1][2]*m[2][0]
	minor01 := m[1][0]*m[2][1] - m[1][1]*m[2][0]
	return m[0][2]*minor01 + (m[0][0]*minor12 - m[0][1]*minor02)
}
