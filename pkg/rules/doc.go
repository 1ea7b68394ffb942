// Package rules is the validation runtime consumed by form engines. A rule
// tree mirrors the shape of a submitted value: object rules hold one rule per
// key, array rules hold one element rule, and leaf rules check scalars.
//
// Rules never return errors for bad input. Check reports Issues addressed by
// the value path, and Validate wraps them into a *ValidationError.
package rules
