// Package pages discovers the buildable pages of an application.
//
// A module keeps one directory per page under <appPath>/<module>/page/.
// Each page directory holds an entry script (index.js, index.jsx, index.ts
// or index.tsx) and usually an index.html template. The resolver turns that
// layout into the entry map consumed by the compiler and the page directory
// consumed by the HTML directives.
package pages
