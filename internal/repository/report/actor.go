package report

import (
	"fmt"
	"os"
	"os/user"
)

// Actor identifies the machine and account that ran the packager.
type Actor struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
}

// DetectActor gathers host and user information for the report.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
