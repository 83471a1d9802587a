// Package logtail reads the tail of heapdiff's own log file for display in
// the panel.
//
// The panel logs JSON records through logrus because it owns the terminal.
// Read returns the last N records using a ring buffer of N lines, so memory
// use does not depend on the size of the file. Lines that are not JSON
// records are passed through untouched in Entry.Raw.
//
//	entries, err := logtail.Read(cfg.LogFile, 200)
//	for _, e := range entries {
//		fmt.Println(e)
//	}
package logtail
