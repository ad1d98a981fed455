package recordbase

// credentials pair the raw token triple with its decoded claims.
type credentials struct {
	tokens Tokens
	claims Claims
}

// tokenState is an immutable snapshot of the current session: credentials
// (absent for anonymous or undecodable sessions) plus the derived request
// headers. States are replaced wholesale on login, logout, and refresh,
// never mutated field by field, which keeps concurrent readers safe against
// half-updated state.
type tokenState struct {
	creds   *credentials
	headers map[string]string
}

// newTokenState derives a fresh snapshot from a token triple. A nil triple
// yields the anonymous state. If the auth token's claims cannot be decoded,
// credentials stay absent but headers are still derived from the raw tokens:
// a malformed payload must not block sending requests, only expiry-aware
// claim reasoning.
func newTokenState(tokens *Tokens) *tokenState {
	headers := buildHeaders(tokens)
	if tokens == nil {
		return &tokenState{headers: headers}
	}

	claims, err := DecodeClaims(tokens.Auth)
	if err != nil {
		return &tokenState{headers: headers}
	}

	return &tokenState{
		creds:   &credentials{tokens: *tokens, claims: *claims},
		headers: headers,
	}
}

func buildHeaders(tokens *Tokens) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	if tokens != nil {
		headers["Authorization"] = "Bearer " + tokens.Auth
		if tokens.Refresh != nil {
			headers["Refresh-Token"] = *tokens.Refresh
		}
		if tokens.Csrf != nil {
			headers["CSRF-Token"] = *tokens.Csrf
		}
	}

	return headers
}
