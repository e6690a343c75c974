// Package assessapi is the REST client for the assessment backend: artifact
// upload, analysis triggering, and job status reads.
package assessapi
