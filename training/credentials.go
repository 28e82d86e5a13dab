package training

import (
	"fmt"
	"os"
	"strings"
)

// TokenEnv names the environment variable holding the training service
// credential when no key file is configured.
const TokenEnv = "DEMANDCAST_TRAINING_TOKEN"

// LoadToken reads the bearer token for the training service. The key file
// holds the token on a single line; when the path is empty or the file does
// not exist, the DEMANDCAST_TRAINING_TOKEN environment variable is consulted
// instead. Returns ErrMissingToken when neither source yields a token.
func LoadToken(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if token := strings.TrimSpace(string(data)); token != "" {
				return token, nil
			}
		case !os.IsNotExist(err):
			return "", fmt.Errorf("reading token file: %w", err)
		}
	}

	if token := strings.TrimSpace(os.Getenv(TokenEnv)); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}
