// Package beam provides antenna voltage-pattern models and the registry that
// resolves a telescope, antenna name and dish diameter to a model.
//
// Two model families exist: an analytic blocked-aperture Airy pattern and a
// sampled complex voltage-pattern image. The registry is an explicit value
// passed to its users; there is no package-level instance.
package beam
