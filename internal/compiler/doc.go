// Package compiler runs a bundle.Config through a compiler engine.
//
// Three engines share one contract. The esbuild engine bundles in-process.
// The exec engine hands the configuration to an external bundler command
// and reads its stats from stdout. The docker engine runs that same command
// inside a container with the app directory bind-mounted.
//
// A Run call is single-shot: it yields either stats (which may carry
// compile errors and warnings) or a transport error when the engine could
// not produce stats at all.
package compiler
