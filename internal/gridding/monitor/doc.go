// Package monitor renders diagnostics of a convolution-function cache:
// PNG amplitude profiles of built kernels and an HTML chart of support
// radii and cache activity.
package monitor
