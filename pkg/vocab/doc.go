// Package vocab holds the closed set of labels a classifier may emit.
//
// A vocabulary is fixed at process start. It is loaded from a file with one
// label per line, in the class order the classifier was trained with:
//
//	A
//	B
//	...
//	del
//	nothing
//
// Blank lines and lines starting with '#' are ignored.
package vocab
