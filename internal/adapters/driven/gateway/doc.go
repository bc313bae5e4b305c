// Package gateway normalises remote model providers behind the
// ModelGateway port. The parent package owns the pieces every vendor
// shares: the retrying HTTP transport with failure classification,
// prompt construction and model output parsing. Vendor subpackages
// (openai, anthropic, ollama) only speak their own wire format.
package gateway
