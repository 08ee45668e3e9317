// Package deps locates the external tools CamReview shells out to and reports
// their availability for status output and startup logs.
package deps

// Status reports the availability of one external tool. Optional tools only
// disable the features that need them.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}
