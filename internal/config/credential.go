package config

import "strings"

// CredentialError reports that no API key is available from either the
// operator or the environment.
type CredentialError struct{}

func (e *CredentialError) Error() string {
	return "no OpenAI API key available: provide one or set " + APIKeyEnvVar
}

// ResolveAPIKey picks the key entered by the operator over the one from the
// environment. The returned key is never stored anywhere by this package.
func ResolveAPIKey(fromOperator, fromEnv string) (string, error) {
	if key := strings.TrimSpace(fromOperator); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(fromEnv); key != "" {
		return key, nil
	}

	return "", &CredentialError{}
}
