// Package skycoord provides the sky-direction and image-coordinate types used
// by the gridding packages.
//
// Directions are held in radians. Projection implements the orthographic
// (SIN) projection commonly used for interferometric images, together with a
// linear spectral axis.
package skycoord
