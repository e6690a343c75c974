// Package recorder buffers chunks from a capture device stream and finalizes
// them into a single upload artifact, enforcing the recording duration cap.
package recorder
