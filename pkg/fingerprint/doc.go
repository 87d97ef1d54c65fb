// Package fingerprint derives deterministic cache keys from request content.
//
// # Overview
//
// Identical requests to a generative-AI API should hit the response cache
// instead of the network. The package provides the two pieces that make that
// possible:
//
//   - A self-contained SHA-256 implementation (no crypto imports) used as the
//     digest for all key material.
//   - A Request description type that canonicalizes the semantic content of a
//     call (model, conversation turns, system instruction, generation
//     parameters, enabled tools) into a single digest via CacheKey.
//
// The digest is used for key derivation and redacted identifiers only, never
// for authentication or secrecy, so there is no constant-time requirement.
//
// # Usage
//
//	req := fingerprint.Request{
//		Model:  "gemini-2.0-flash",
//		System: "You are a helpful assistant.",
//		Turns: []fingerprint.Turn{
//			{Role: "user", Parts: []fingerprint.Part{{Text: "hello"}}},
//		},
//	}
//	key := req.CacheKey()
package fingerprint
