// Package content provides the content-processing steps and the two
// reference workflows built from them.
//
// The conditional workflow assesses an article and routes it through every
// matching processing path:
//
//	content-assessment -> branch {
//	    category == short                        -> quick-processing
//	    category == long || complexity == complex -> deep-processing
//	    category == medium && complexity == simple -> standard-processing
//	}
//
// The parallel workflow runs SEO, readability and sentiment analysis
// concurrently and combines their results.
//
// Steps publish progress through RunContext.Log. Simulated latency,
// randomness and injected faults are configured with Option values so runs
// are reproducible in tests.
package content
