// Package retry provides a reusable retry policy: a number of attempts and a
// delay strategy between them. It knows nothing about what is being retried;
// callers mark errors that must not be retried with Permanent.
package retry
