// Package logx configures schedbot's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps
// console output readable (short timestamp + short caller) and file
// output JSON-structured, and whose level can be re-applied at runtime
// when the config file changes.
package logx
