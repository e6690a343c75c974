// Package services hosts clients for external collaborators (the assessment
// backend, ffmpeg capture) plus the shared error taxonomy used to classify
// their failures.
package services
