// Package didbase runs many difference-in-differences specifications
// at once by pooling the steps their procedures have in common.
//
// The pooling and execution engine is in package 'core', the DID
// procedures are in 'did', and some command-line tools are in `cmd`.
package didbase
