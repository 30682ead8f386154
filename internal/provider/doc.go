// Package provider is the boundary to external AI model providers.
//
// Executors never talk to the network themselves; they receive a Client
// through their execution context and call it with a named provider/model and
// a payload. Failures come back as *Error values with a machine-readable
// Kind (timeout, rate-limited, invalid-credentials, provider-error) so the
// scheduler and UI can distinguish transient from permanent failures without
// string matching.
package provider
