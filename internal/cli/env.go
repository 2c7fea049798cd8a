package cli

import (
	"os"

	"golang.org/x/term"
)

// Environment is the execution context, detected once per invocation and
// passed down to the commands that adapt their output to it.
type Environment struct {
	// CI is set when a CI provider's environment variable is present.
	CI bool
	// Interactive is set when a terminal is attached and not running in CI.
	Interactive bool
}

// ciVars are environment variables set by common CI providers.
var ciVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"TRAVIS",
	"JENKINS_URL",
	"BUILDKITE",
	"DRONE",
	"TEAMCITY_VERSION",
	"TF_BUILD",            // Azure DevOps
	"BITBUCKET_PIPELINES", // Bitbucket
	"CODEBUILD_BUILD_ID",  // AWS CodeBuild
}

// DetectEnvironment inspects the process environment and terminal.
func DetectEnvironment() Environment {
	ci := isCI(os.Getenv)
	return Environment{
		CI:          ci,
		Interactive: !ci && isInteractive(),
	}
}

func isCI(getenv func(string) string) bool {
	for _, v := range ciVars {
		if getenv(v) != "" {
			return true
		}
	}
	return false
}

// isInteractive checks stdout first, then stderr: stdin is often piped
// while output still goes to a terminal.
func isInteractive() bool {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return true
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
