package river

import "regexp"

// recoverablePatterns are the known transient source-failure signatures.
// Anything the source surfaces that does not match one of these is fatal
// for the worker that saw it.
var recoverablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`Master for shard \[.*\) not available`), // shard master briefly gone after the db starts
	regexp.MustCompile(`(?i)error receiving data`),              // server went away while we were blocked reading
	regexp.MustCompile(`(?i)query interrupted`),
	regexp.MustCompile(`(?i)broken pipe`),
}

// IsRecoverable reports whether a source error is a known transient
// failure worth a reconnect instead of worker termination.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range recoverablePatterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}
