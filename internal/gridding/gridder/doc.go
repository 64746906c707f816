// Package gridder convolves visibilities onto a uv lattice and samples
// model visibilities back from one, using the per-pair kernels handed out
// by convfunc.Cache.
//
// Accumulate partitions the lattice into disjoint rectangles, one worker per
// rectangle, so no two workers write the same pixel. Each worker keeps its
// own weight sums; they are merged once every worker has finished. Sample
// partitions rows instead, since each row writes only its own samples.
package gridder
