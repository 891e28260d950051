// Package jwt manages issuance and verification of the signed access and
// refresh token pair, using distinct HS256 secrets per token kind and
// strict validation semantics suitable for low-latency authentication paths.
package jwt
