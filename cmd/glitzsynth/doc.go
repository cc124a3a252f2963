// Command glitzsynth writes synthesized waveform bytes for use as glitzhit
// input, and prints the conversion history kept by the server.
//
// Usage:
//
//	glitzsynth <command> [flags]
//
// Commands:
//
//	generate    Write duration*fps*width*height*3 bytes of the chosen
//	            waveform to -o (default stdout). Output to a terminal is
//	            refused unless -force is given. The ffmpeg rawvideo flags
//	            matching the output are printed to stderr.
//
//	algorithms  List sine, square, triangle, sawtooth and random.
//
//	history     Show the most recent conversions from history.db.
//
// Example:
//
//	glitzsynth generate -algorithm sine -duration 2 -width 64 -height 64 -fps 10 -o out.dat
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: data)
package main
