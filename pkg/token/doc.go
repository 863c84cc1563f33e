/*
Package token converts prompts to URL-safe tokens and back.

A token is the gzip-compressed UTF-8 prompt in unpadded base64url, so it only
contains [A-Za-z0-9_-] and can be used as a query value without escaping.
Decoding is total: a token that is not a compressed payload is read as a
legacy percent-encoded prompt, and failing that, as the prompt itself.

	tok := token.Encode("How do I create a React component with state?")
	prompt := token.Decode(tok)
*/
package token
