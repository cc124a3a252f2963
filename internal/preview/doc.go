// Package preview renders a single frame of a job's raw input as an image.
//
// The raw bytes are interpreted exactly as the encoder would read them
// (gray, rgb24 or rgba, row-major, no padding), scaled with
// nearest-neighbour sampling to match the encoder's scale filter, and
// encoded as PNG, JPEG, GIF, BMP or TIFF.
package preview
