package auth

// TokenValidator validates credentials and extracts claims without tying
// callers to a specific signing implementation.
type TokenValidator interface {
	Validate(credential Credential) (*CredentialClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(credential Credential) (*CredentialClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(credential Credential) (*CredentialClaims, error) {
	if f == nil {
		return nil, ErrMalformedCredential
	}
	return f(credential)
}

// MultiTokenValidator tries validators in order until one succeeds. It treats
// malformed-credential failures as "try next" and returns the last one when
// every validator fails; expiry and other definitive failures short-circuit.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(credential Credential) (*CredentialClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(credential)
		if err == nil {
			return claims, nil
		}
		if IsMalformedCredential(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrMalformedCredential
}
