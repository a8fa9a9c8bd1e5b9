// Package domain contains the core business entities of the application:
// generated coding problems (Artifacts) and their validation rules. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
