// Package jwt issues and verifies the signed access and refresh tokens of a
// session authority.
//
// A [Codec] pairs two [Manager] values, one per token kind. Each has its own
// key and lifetime, and [NewCodec] refuses to build a codec whose two sides
// verify with the same key. Verification here is purely cryptographic; a
// token that parses is not proof that its session is still live.
package jwt
