// Package mocks provides centralized mock implementations for testing.
//
// Each mock has a function field per interface method, default return
// values used when the function is nil, and mutex-guarded call tracking so
// the mocks can be shared by concurrently running code under test.
//
//	gen := &mocks.MockGenerator{
//	    GenerateFn: func(ctx context.Context, prompt string) (string, error) {
//	        return `{"title": "Two Sum", ...}`, nil
//	    },
//	}
package mocks
