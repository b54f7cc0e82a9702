package utils

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// EnvLocations are tried in order of preference
var EnvLocations = []string{
	".env",        // Current directory
	".env.local",  // Local override
	"config/.env", // Config directory
}

// LoadEnv loads environment variables from a .env file.
// Variables already present in the process environment are kept.
func LoadEnv(filename string) (bool, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return false, nil
	}

	if err := godotenv.Load(filename); err != nil {
		return false, err
	}
	return true, nil
}

// LoadEnvWithFallback loads the first .env file found in EnvLocations
func LoadEnvWithFallback() string {
	for _, location := range EnvLocations {
		loaded, err := LoadEnv(location)
		if err != nil {
			log.Printf("Could not load %s: %v", location, err)
			continue
		}
		if loaded {
			return location
		}
	}

	// No .env file found in any location - that's okay
	return ""
}
