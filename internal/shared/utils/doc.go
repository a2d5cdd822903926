// Package utils holds input validation shared by the transports and the
// service boundary.
package utils
