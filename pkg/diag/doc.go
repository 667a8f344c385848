// Package diag defines diagnostic events and the severity policy that
// decides which of them are reported.
package diag
