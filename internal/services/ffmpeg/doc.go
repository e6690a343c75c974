// Package ffmpeg wraps the ffmpeg CLI for webcam capture, streaming encoded
// WebM chunks and enforcing exclusive device ownership via file locks.
package ffmpeg
