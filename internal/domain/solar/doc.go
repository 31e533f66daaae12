// Package solar computes the sun's apparent position for a place and time and
// maps it onto the tracker's two servos.
//
// The model is the classic low-precision one: declination from the day of
// year, the equation of time for the solar-time correction, and the hour
// angle. It is accurate to roughly a degree, far finer than a hobby servo can
// resolve.
//
// Azimuth is reported mirrored (360 - az) because the base servo turns
// counter to compass bearing on the reference rig.
package solar
