// Package convfunc computes, caches and hands out the per-baseline
// convolution functions used to grid and degrid visibilities of a
// heterogeneous array.
//
// The cache is keyed by the integer image pixel a pointing projects to (its
// Fingerprint). On the first request for a fingerprint the cache builds one
// kernel plane per unordered pair of antenna classes: the two antennas'
// voltage patterns are multiplied on an oversampled screen, transformed to
// the uv plane, searched for their support and normalised to unit flux. A
// second weight kernel is built the same way from the power patterns.
//
// Entries are never evicted. An entry whose plane count no longer matches
// the antenna classes of the current dataset is rebuilt in place.
//
// Acquire returns a copy of the cached kernels multiplied by the phase
// gradient that shifts them to the pointing's position in the image;
// AcquireReference returns the cached storage itself. Neither may be
// retained across a later Acquire for a different fingerprint.
//
// A Cache is not safe for concurrent use; callers serialise Acquire.
package convfunc
