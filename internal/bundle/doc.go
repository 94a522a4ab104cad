// Package bundle builds the compiler configuration for one stage.
//
// A Config is engine-neutral: it carries the entry map, the output layout,
// the merged settings layers and a list of directives (HTML generation,
// vendor library emission and vendor library reference). The compiler
// engines in package compiler translate it into their own invocation.
package bundle
