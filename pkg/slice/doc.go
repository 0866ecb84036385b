// Package slice cuts one edge image into per-leaf strips.
//
// A book with N leaves shows its fore-edge as N stacked sheet edges. To print
// an image on that edge, the image is partitioned into N equal source columns
// and each column is resampled to the size of the edge strip on its leaf's
// pages. The result for one [Position] is a [Set] holding two parallel
// variants per leaf:
//
//   - Raw: the uncut strip, used when a single edge position is active.
//   - Masked: the strip with mitred ends, used when side and top/bottom
//     strips meet at a corner and must tile without double-covering pixels.
//
// Sources can be decoded images (PNG, JPEG, GIF, WebP, BMP) or a hex colour;
// a colour is treated as a 1×1 image and flows through the same code path.
//
// # Orientation
//
// Side slices are strip-thick and page-tall, with the outer (visible) edge on
// the right as drawn on a right-hand page. Left pages use the horizontal
// mirror. Top and bottom slices are generated as leaf columns and rotated so
// they lie along the page width, outer edge facing up (top) or down (bottom).
package slice
