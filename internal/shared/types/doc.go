// Package types contains shared data structures for the shell home model.
package types
