// Package diffusion integrates the 1-D transient diffusion equation
//
//	∂C/∂t = D·∂²C/∂x²
//
// across a membrane of thickness L with an explicit forward-time,
// centred-space scheme:
//
//   - C(0, t) = C_eq and C(L, t) = 0 for every step, including t = 0
//   - C(x, 0) = 0 everywhere else
//   - outlet flux J(t) = -D·(C[N-1] - C[N-2])/dx
//
// # Stability
//
// The explicit scheme diverges unless dt ≤ dx²/(2D). [Run] checks this
// before allocating anything and returns [permeation.ErrUnstable] instead of
// integrating.
//
// # Concurrency
//
// Steps are sequential. Interior nodes within one step are independent and
// are split across goroutines on wide grids.
package diffusion
