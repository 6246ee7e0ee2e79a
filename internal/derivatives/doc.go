// Package derivatives turns a source media file into its configured derivatives.
//
// Each Directive names a derivative and its target format. The Processor renders
// an encoder command line from a template, runs it through the execshell engine
// into a temporary file, and hands the result to an OutputFileService. Sources
// may be literal paths or doublestar globs.
package derivatives
