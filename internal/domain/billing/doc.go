// Package billing implements progress billing (estimaciones): periodic claims
// that accumulate executed quantities against the current budget of a work
// order, and derive gross, amortization, retention, and net amounts.
package billing
