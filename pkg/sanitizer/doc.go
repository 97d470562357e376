// Package sanitizer provides input normalization for free-text fields before
// validation and storage.
//
// All functions are idempotent: applying them multiple times produces the
// same result. Invalid input is never an error here; validators decide what
// is acceptable after normalization.
package sanitizer
