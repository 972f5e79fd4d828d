// Package util holds helpers shared by the service packages: byte sizes
// in both directions, secret masking for logs and case-folded lookup sets.
package util
